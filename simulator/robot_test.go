package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/motion"
	"github.com/arloliu/go-tmcomm/robot"
)

func scriptFrame(t *testing.T, id string, script string) *listennode.Frame {
	t.Helper()

	f, err := listennode.NewScriptFrame(id, script)
	require.NoError(t, err)

	return f
}

func TestRobot_ChangeBase(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")
	require.Equal(robot.RobotBase, r.Base())

	replies := r.Handle(scriptFrame(t, "base", `Base["table"].Value={100,0,0,0,0,0}`+"\r\n"+motion.ChangeBase("table")+"\r\n"))
	require.Len(replies, 1)
	require.Equal("base", replies[0].ScriptID())
	require.Equal("OK", replies[0].Payload())
	require.Equal("table", r.Base())

	replies = r.Handle(scriptFrame(t, "baseCoords", motion.BaseCoords("table").Script))
	require.Len(replies, 2)
	require.Equal(listennode.StatusQuery, replies[1].Header())
	require.Equal("90", replies[1].ScriptID())
	require.Equal("{100.000,0.000,0.000,0.000,0.000,0.000}", replies[1].Payload())
}

func TestRobot_ChangeTool(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")
	r.Handle(scriptFrame(t, "tool", motion.DefineTool("gripper", motion.NewCartesian(0, 0, 120, 0, 0, 0))+"\r\n"+motion.ChangeTool("gripper")))
	require.Equal("gripper", r.Tool())

	f := r.Telemetry(ethslave.ModeString)
	require.Equal(`"gripper"`, f.Value(ethslave.KeyToolName))
	require.Equal("{0.000,0.000,120.000,0.000,0.000,0.000}", f.Value(ethslave.KeyToolValue))
}

func TestRobot_MotionAndQueueTag(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")
	step, err := motion.NewMoveStep(motion.Line, motion.CPP, motion.NewCartesian(400, 10, 300, 180, 0, 90))
	require.NoError(err)
	script, err := motion.BuildMotionScript([]*motion.MoveStep{step}, false, 3)
	require.NoError(err)

	replies := r.Handle(scriptFrame(t, "local", script))
	require.Len(replies, 2)
	require.Equal("OK", replies[0].Payload())
	require.Equal("03", replies[1].ScriptID())
	require.Equal("03,true", replies[1].Payload())
	require.Equal(motion.NewCartesian(400, 10, 300, 180, 0, 90), r.Cartesian())
}

func TestRobot_ScriptExit(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")

	replies := r.Handle(scriptFrame(t, "exit", motion.ScriptExitMode(1)))
	require.Len(replies, 2)
	require.Equal("exit", replies[0].ScriptID())
	require.Equal("Listen1", replies[1].Payload())

	replies = r.Handle(scriptFrame(t, "local", "QueueTag(1)\r\nScriptExit()\r\n"))
	require.Len(replies, 4)
	require.Equal("local", replies[0].ScriptID())
	require.Equal("01", replies[1].ScriptID())
	require.Equal("exit", replies[2].ScriptID())
	require.Equal("Listen1", replies[3].Payload())
}

func TestRobot_Queries(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")
	a := motion.NewCartesian(0, 0, 0, 0, 0, 0)
	b := motion.NewCartesian(3, 4, 0, 0, 0, 0)

	tests := []struct {
		name  string
		query func() (motion.Query, error)
		want  string
	}{
		{"dist", func() (motion.Query, error) { return motion.Dist(1, a, b) }, "5.000"},
		{"interpoint", func() (motion.Query, error) { return motion.InterPoint(2, a, b, 0.5) },
			"{1.500,2.000,0.000,0.000,0.000,0.000}"},
		{"applytrans", func() (motion.Query, error) { return motion.ApplyTrans(3, b, b, true) },
			"{6.000,8.000,0.000,0.000,0.000,0.000}"},
		{"inverse", func() (motion.Query, error) { return motion.InverseTrans(4, b, false) },
			"{-3.000,-4.000,0.000,0.000,0.000,0.000}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.query()
			require.NoError(err)

			replies := r.Handle(scriptFrame(t, q.Tag, q.Script))
			require.Len(replies, 2)
			require.Equal(q.Channel, replies[1].ScriptID())
			require.Equal(tt.want, replies[1].Payload())
		})
	}
}

func TestRobot_Rejects(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")

	replies := r.Handle(scriptFrame(t, "local", "PTP(\"CPP\",1,2,3"))
	require.Len(replies, 1)
	require.Equal("ERROR;1;1", replies[0].Payload())

	r.SetMute(true)
	require.Empty(r.Handle(scriptFrame(t, "local", "QueueTag(1)")))
	r.SetMute(false)

	r.SetInListen(false)
	replies = r.Handle(scriptFrame(t, "local", "QueueTag(1)"))
	require.Len(replies, 1)
	require.Equal(listennode.CommError, replies[0].Header())
	require.Equal(listennode.ErrCodeNotInListenNode, replies[0].ErrorCode())

	status, err := listennode.NewStatusFrame("00", "")
	require.NoError(err)
	replies = r.Handle(status)
	require.Len(replies, 1)
	require.Equal("false", replies[0].Payload())
}

func TestRobot_TelemetryCycle(t *testing.T) {
	require := require.New(t)

	r := NewRobot("Listen1")
	for i := 0; i < 12; i++ {
		f := r.Telemetry(ethslave.ModeJSON)
		require.Equal(i%10, f.TransactionIndex())
		require.Equal(`"RobotBase"`, f.Value(ethslave.KeyBaseName))
	}
}
