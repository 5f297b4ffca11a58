package controller

import (
	"context"
	"fmt"

	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/robot"
	"github.com/arloliu/go-tmcomm/waiter"
)

// Script IDs of the frame changing scripts.
const (
	baseScriptID = "base"
	toolScriptID = "tool"
)

const scriptEOL = "\r\n"

// SetBase switches the robot to the named base. An empty name selects RobotBase.
//
// It succeeds without sending anything when the base is already current. Otherwise it
// succeeds once the robot acknowledged the change and telemetry reports the new base.
func (c *Controller) SetBase(ctx context.Context, name string) Result {
	return c.finish("SetBase", c.setBase(ctx, name))
}

func (c *Controller) setBase(ctx context.Context, name string) Result {
	if name == "" {
		name = robot.RobotBase
	}

	if c.cache.Snapshot().Base == name {
		return resolved(StageBaseChange, name)
	}

	if res := c.ready(ctx); !res.OK() {
		return res
	}

	return c.changeFrame(ctx, StageBaseChange, baseScriptID, motion.ChangeBase(name), func(s robot.State) bool {
		return s.Base == name
	})
}

// SetBaseDefinition switches the robot to a base given by definition.
//
// A named definition with coordinates first assigns them to the robot's base of that
// name, and is sent even when that base is already current. A definition without name
// switches to an anonymous base at its coordinates; the change is then confirmed by the
// acknowledgement alone.
func (c *Controller) SetBaseDefinition(ctx context.Context, def robot.Definition) Result {
	if def.Name == robot.RobotBase {
		return c.SetBase(ctx, def.Name)
	}

	if res := c.ready(ctx); !res.OK() {
		return c.finish("SetBaseDefinition", res)
	}

	if def.Name == "" {
		return c.finish("SetBaseDefinition",
			c.changeFrame(ctx, StageBaseChange, baseScriptID, motion.ChangeBaseTo(def.Position), nil))
	}

	script := motion.ChangeBase(def.Name)
	if !def.Position.IsZero() {
		script = motion.DefineBase(def.Name, def.Position) + scriptEOL + script
	}

	return c.finish("SetBaseDefinition", c.changeFrame(ctx, StageBaseChange, baseScriptID, script, func(s robot.State) bool {
		return s.Base == def.Name
	}))
}

// SetBasePreset switches the robot to a base from the preset registry.
func (c *Controller) SetBasePreset(ctx context.Context, name string) Result {
	def, ok := c.presets.Bases.Get(name)
	if !ok {
		return c.finish("SetBasePreset", failed(StageBaseChange, fmt.Errorf("%w: base %q", ErrUnknownPreset, name)))
	}

	return c.SetBaseDefinition(ctx, def)
}

// SetTool switches the robot to the named tool. An empty name selects NOTOOL.
//
// It succeeds without sending anything when the tool is already current. Otherwise it
// succeeds once the robot acknowledged the change and telemetry reports the new tool.
func (c *Controller) SetTool(ctx context.Context, name string) Result {
	if name == "" {
		name = robot.NoTool
	}

	if c.cache.Snapshot().Tool == name {
		return c.finish("SetTool", resolved(StageToolChange, name))
	}

	if res := c.ready(ctx); !res.OK() {
		return c.finish("SetTool", res)
	}

	return c.finish("SetTool", c.changeFrame(ctx, StageToolChange, toolScriptID, motion.ChangeTool(name), func(s robot.State) bool {
		return s.Tool == name
	}))
}

// SetToolDefinition switches the robot to a tool given by definition, see SetBaseDefinition.
func (c *Controller) SetToolDefinition(ctx context.Context, def robot.Definition) Result {
	if def.Name == robot.NoTool {
		return c.SetTool(ctx, def.Name)
	}

	if res := c.ready(ctx); !res.OK() {
		return c.finish("SetToolDefinition", res)
	}

	if def.Name == "" {
		return c.finish("SetToolDefinition",
			c.changeFrame(ctx, StageToolChange, toolScriptID, motion.ChangeToolTo(def.Position), nil))
	}

	script := motion.ChangeTool(def.Name)
	if !def.Position.IsZero() {
		script = motion.DefineTool(def.Name, def.Position) + scriptEOL + script
	}

	return c.finish("SetToolDefinition", c.changeFrame(ctx, StageToolChange, toolScriptID, script, func(s robot.State) bool {
		return s.Tool == def.Name
	}))
}

// SetToolPreset switches the robot to a tool from the preset registry.
func (c *Controller) SetToolPreset(ctx context.Context, name string) Result {
	def, ok := c.presets.Tools.Get(name)
	if !ok {
		return c.finish("SetToolPreset", failed(StageToolChange, fmt.Errorf("%w: tool %q", ErrUnknownPreset, name)))
	}

	return c.SetToolDefinition(ctx, def)
}

// changeFrame sends a base or tool changing script, awaits its acknowledgement and then
// waits for telemetry to satisfy confirm, when not nil.
func (c *Controller) changeFrame(ctx context.Context, stage Stage, scriptID string, script string, confirm func(robot.State) bool) Result {
	c.engine.Arm(waiter.Acknowledge, scriptID)

	if err := c.sendScript(ctx, scriptID, script+scriptEOL); err != nil {
		c.engine.Cancel(waiter.Acknowledge)
		return failed(StageSend, err)
	}

	if ack := c.engine.Await(ctx, waiter.Acknowledge, c.cfg.ackTimeout); !ack.OK() {
		return fromWait(StageAcknowledge, ack)
	}

	if confirm == nil {
		return resolved(stage, "")
	}

	s, ok := c.cache.WaitFor(ctx, c.cfg.confirmTimeout, confirm)
	if !ok {
		outcome := waiter.Timeout
		if ctx.Err() != nil {
			outcome = waiter.Cancelled
		}
		return Result{Stage: stage, Outcome: outcome, Payload: currentName(stage, s)}
	}

	return resolved(stage, currentName(stage, s))
}

func currentName(stage Stage, s robot.State) string {
	if stage == StageToolChange {
		return s.Tool
	}
	return s.Base
}

// ready checks that both channels are ready and, with the status preflight enabled,
// that the listen node accepts scripts.
func (c *Controller) ready(ctx context.Context) Result {
	if !c.cache.Ready() {
		return Result{Stage: StageReady, Outcome: waiter.NotReady}
	}

	if !c.cfg.statusPreflight {
		return resolved(StageReady, "")
	}

	res := c.statusQuery(ctx, listenNodeStatusCmd)
	if !res.OK() {
		return Result{Stage: StageReady, Outcome: res.Outcome, Payload: res.Payload, Err: res.Err}
	}
	if !listenNodeReady(res.Payload) {
		return Result{Stage: StageReady, Outcome: waiter.NotReady, Payload: res.Payload}
	}

	return resolved(StageReady, res.Payload)
}
