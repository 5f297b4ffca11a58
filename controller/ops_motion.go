package controller

import (
	"context"
	"strings"

	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/waiter"
)

// listenNodeStatusCmd is the TMSTA sub-command asking whether the listen node accepts scripts.
const listenNodeStatusCmd = "00"

// stopExitMode is the ScriptExit mode that stops the running motion.
const stopExitMode = 1

// MoveTo sends moves as one motion script ending with QueueTag(queueTag).
//
// When the first move names a base other than the current one, the robot switches to it
// first. With queueTag > 0 MoveTo returns once the robot reports the tag, i.e. once the
// motion completed; otherwise it returns once the script was acknowledged.
func (c *Controller) MoveTo(ctx context.Context, queueTag int, moves ...*motion.MoveStep) Result {
	if len(moves) == 0 {
		return c.finish("MoveTo", failed(StageSend, ErrNoMoves))
	}

	if res := c.ready(ctx); !res.OK() {
		return c.finish("MoveTo", res)
	}

	if base := moves[0].BaseName(); base != "" && base != c.cache.Snapshot().Base {
		if res := c.setBase(ctx, base); !res.OK() {
			res.Stage = StageBaseChange
			return c.finish("MoveTo", res)
		}
	}

	script, err := motion.BuildMotionScript(moves, false, queueTag)
	if err != nil {
		return c.finish("MoveTo", failed(StageSend, err))
	}

	return c.finish("MoveTo", c.runMotion(ctx, listennode.DefaultScriptID, script, queueTag))
}

// ExecuteScript sends a raw script. With queueTag > 0 it waits until the robot reports the
// tag; the script is expected to contain the QueueTag call itself. With exitAfter set the
// robot leaves the script afterwards and ExecuteScript waits for it to re-enter the
// listen node.
func (c *Controller) ExecuteScript(ctx context.Context, script string, queueTag int, exitAfter bool) Result {
	if res := c.ready(ctx); !res.OK() {
		return c.finish("ExecuteScript", res)
	}

	res := c.runMotion(ctx, listennode.DefaultScriptID, script, queueTag)
	if !res.OK() || !exitAfter {
		return c.finish("ExecuteScript", res)
	}

	return c.finish("ExecuteScript", c.scriptExit(ctx, stopExitMode, c.cfg.listenNodeName))
}

// runMotion sends a motion script, awaits its acknowledgement and, with queueTag > 0, the tag.
func (c *Controller) runMotion(ctx context.Context, scriptID string, script string, queueTag int) Result {
	c.engine.Arm(waiter.Acknowledge, scriptID)
	if queueTag > 0 {
		c.engine.Arm(waiter.QueueTagReached, motion.QueueTagKey(queueTag))
	}

	if err := c.sendScript(ctx, scriptID, script); err != nil {
		c.engine.Cancel(waiter.Acknowledge)
		if queueTag > 0 {
			c.engine.Cancel(waiter.QueueTagReached)
		}

		return failed(StageSend, err)
	}

	if ack := c.engine.Await(ctx, waiter.Acknowledge, c.cfg.ackTimeout); !ack.OK() {
		if queueTag > 0 {
			c.engine.Cancel(waiter.QueueTagReached)
		}
		return fromWait(StageAcknowledge, ack)
	}

	if queueTag <= 0 {
		return resolved(StageMotionComplete, "")
	}

	tag := c.engine.Await(ctx, waiter.QueueTagReached, c.cfg.motionTimeout)
	if !tag.OK() {
		return fromWait(StageQueueTag, tag)
	}

	return resolved(StageMotionComplete, tag.Payload)
}

// ScriptExit makes the robot leave the running script and waits until it re-enters the
// listen node named nodeName. An empty nodeName selects the configured listen node.
func (c *Controller) ScriptExit(ctx context.Context, mode int, nodeName string) Result {
	if res := c.ready(ctx); !res.OK() {
		return c.finish("ScriptExit", res)
	}

	if nodeName == "" {
		nodeName = c.cfg.listenNodeName
	}

	return c.finish("ScriptExit", c.scriptExit(ctx, mode, nodeName))
}

// StopMotion stops the running motion and waits for the robot to return to the listen node.
func (c *Controller) StopMotion(ctx context.Context) Result {
	return c.ScriptExit(ctx, stopExitMode, "")
}

func (c *Controller) scriptExit(ctx context.Context, mode int, nodeName string) Result {
	c.engine.Arm(waiter.ScriptReentry, nodeName)

	if err := c.sendScript(ctx, waiter.ExitScriptID, motion.ScriptExitMode(mode)); err != nil {
		c.engine.Cancel(waiter.ScriptReentry)
		return failed(StageSend, err)
	}

	res := c.engine.Await(ctx, waiter.ScriptReentry, c.cfg.reentryTimeout)
	if !res.OK() {
		return fromWait(StageScriptReentry, res)
	}

	return resolved(StageScriptReentry, res.Payload)
}

// ListenNodeStatus asks the robot whether the listen node accepts scripts. The payload of a
// successful result starts with "true" when it does.
func (c *Controller) ListenNodeStatus(ctx context.Context) Result {
	if !c.cache.Snapshot().CommandReady {
		return c.finish("ListenNodeStatus", Result{Stage: StageReady, Outcome: waiter.NotReady})
	}

	return c.finish("ListenNodeStatus", c.statusQuery(ctx, listenNodeStatusCmd))
}

// IsListenNodeReady reports whether the listen node accepts scripts.
func (c *Controller) IsListenNodeReady(ctx context.Context) bool {
	res := c.ListenNodeStatus(ctx)
	return res.OK() && listenNodeReady(res.Payload)
}

func (c *Controller) statusQuery(ctx context.Context, subCmd string) Result {
	frame, err := listennode.NewStatusFrame(subCmd, "")
	if err != nil {
		return failed(StageStatusReply, err)
	}

	c.engine.Arm(waiter.StatusReply, subCmd)

	if err := c.send(ctx, frame); err != nil {
		c.engine.Cancel(waiter.StatusReply)
		return failed(StageSend, err)
	}

	res := c.engine.Await(ctx, waiter.StatusReply, c.cfg.statusTimeout)
	if !res.OK() {
		return fromWait(StageStatusReply, res)
	}

	return resolved(StageStatusReply, res.Payload)
}

func listenNodeReady(payload string) bool {
	return strings.HasPrefix(payload, "true")
}
