package controller

import (
	"context"

	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/waiter"
)

// GetBaseCoords returns the coordinates of the named base.
func (c *Controller) GetBaseCoords(ctx context.Context, name string) Result {
	return c.finish("GetBaseCoords", c.runQuery(ctx, motion.BaseCoords(name), nil))
}

// GetToolCoords returns the coordinates of the named tool.
func (c *Controller) GetToolCoords(ctx context.Context, name string) Result {
	return c.finish("GetToolCoords", c.runQuery(ctx, motion.ToolCoords(name), nil))
}

// AcquireLandmark runs the vision landmark job and returns the resulting base.
func (c *Controller) AcquireLandmark(ctx context.Context) Result {
	return c.finish("AcquireLandmark", c.runQuery(ctx, motion.Landmark(), nil))
}

// GetDist returns the distance between two points.
func (c *Controller) GetDist(ctx context.Context, index int, a, b motion.Position) Result {
	q, err := motion.Dist(index, a, b)
	return c.finish("GetDist", c.runQuery(ctx, q, err))
}

// GetPoints2Coord returns the coordinate frame spanned by an origin and points on its X and Y axes.
func (c *Controller) GetPoints2Coord(ctx context.Context, index int, origin, xAxis, yAxis motion.Position) Result {
	q, err := motion.Points2Coord(index, origin, xAxis, yAxis)
	return c.finish("GetPoints2Coord", c.runQuery(ctx, q, err))
}

// GetApplyTrans returns initial transformed by offset.
func (c *Controller) GetApplyTrans(ctx context.Context, index int, initial, offset motion.Position, initialPoint bool) Result {
	q, err := motion.ApplyTrans(index, initial, offset, initialPoint)
	return c.finish("GetApplyTrans", c.runQuery(ctx, q, err))
}

// GetInterPoint returns the point at ratio between a and b.
func (c *Controller) GetInterPoint(ctx context.Context, index int, a, b motion.Position, ratio float64) Result {
	q, err := motion.InterPoint(index, a, b, ratio)
	return c.finish("GetInterPoint", c.runQuery(ctx, q, err))
}

// GetTrans returns the transformation from start to end.
func (c *Controller) GetTrans(ctx context.Context, index int, start, end motion.Position, referenceFirst bool) Result {
	q, err := motion.Trans(index, start, end, referenceFirst)
	return c.finish("GetTrans", c.runQuery(ctx, q, err))
}

// GetChangeRef re-expresses point, given in originalFrame, in newFrame.
func (c *Controller) GetChangeRef(ctx context.Context, index int, point, originalFrame, newFrame motion.Position) Result {
	q, err := motion.ChangeRef(index, point, originalFrame, newFrame)
	return c.finish("GetChangeRef", c.runQuery(ctx, q, err))
}

// GetInverse returns the inverse of a transformation.
func (c *Controller) GetInverse(ctx context.Context, index int, trans motion.Position, baseRelative bool) Result {
	q, err := motion.InverseTrans(index, trans, baseRelative)
	return c.finish("GetInverse", c.runQuery(ctx, q, err))
}

// runQuery sends a ListenSend script and returns the computed value.
//
// The value is awaited before the acknowledgement; the robot may send them in either order.
func (c *Controller) runQuery(ctx context.Context, q motion.Query, buildErr error) Result {
	if buildErr != nil {
		return failed(StageComputedValue, buildErr)
	}

	if res := c.ready(ctx); !res.OK() {
		return res
	}

	c.engine.Arm(waiter.Acknowledge, q.Tag)
	c.engine.Arm(waiter.ComputedValueReady, q.Channel)

	if err := c.sendScript(ctx, q.Tag, q.Script); err != nil {
		c.engine.Cancel(waiter.ComputedValueReady)
		c.engine.Cancel(waiter.Acknowledge)

		return failed(StageSend, err)
	}

	value := c.engine.Await(ctx, waiter.ComputedValueReady, c.cfg.valueTimeout)
	if !value.OK() {
		c.engine.Cancel(waiter.Acknowledge)
		return fromWait(StageComputedValue, value)
	}

	if ack := c.engine.Await(ctx, waiter.Acknowledge, c.cfg.ackTimeout); !ack.OK() {
		return fromWait(StageAcknowledge, ack)
	}

	return resolved(StageComputedValue, value.Payload)
}
