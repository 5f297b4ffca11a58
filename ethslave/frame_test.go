package ethslave

import (
	"testing"

	"github.com/arloliu/go-tmcomm/envelope"
	"github.com/stretchr/testify/require"
)

func TestDecode_StringMode(t *testing.T) {
	require := require.New(t)

	content := "Base_Name=\"RobotBase\"\r\nTCP_Name=\"NOTOOL\"\r\n" +
		"TCP_Value={0,0,0,0,0,0}\r\nCoord_Base_Tool={417.5,-122,363.9,180,0,90}\r\n" +
		"Joint_Angle={0,0,90,0,90,0}"
	raw := string(envelope.Seal(HeaderToken, "5,1,"+content))

	f, err := Decode(raw)
	require.NoError(err)
	require.Equal("5", f.TransactionID)
	require.Equal(5, f.TransactionIndex())
	require.Equal(ModeString, f.Mode)
	require.Len(f.Items, 5)
	require.Equal("\"RobotBase\"", f.Value(KeyBaseName))
	require.Equal("{417.5,-122,363.9,180,0,90}", f.Value(KeyCoordBaseTool))

	_, ok := f.Lookup("Ctrl_DO0")
	require.False(ok)
}

func TestDecode_JSONMode(t *testing.T) {
	require := require.New(t)

	content := `[{"Item":"Base_Name","Value":"RobotBase"},{"Item":"Joint_Angle","Value":[0.5,0,90,0,90,0]},{"Item":"Robot_Link","Value":1}]`
	f, err := Decode(string(envelope.Seal(HeaderToken, "0,2,"+content)))
	require.NoError(err)
	require.Equal(ModeJSON, f.Mode)
	require.Equal("RobotBase", f.Value(KeyBaseName))
	require.Equal("{0.5,0,90,0,90,0}", f.Value(KeyJointAngle))
	require.Equal("1", f.Value("Robot_Link"))
}

func TestDecode_Errors(t *testing.T) {
	require := require.New(t)

	_, err := Decode("$TMSVR,garbage")
	require.ErrorIs(err, envelope.ErrMalformed)

	_, err = Decode(string(envelope.Seal("TMSCT", "local,OK")))
	require.ErrorIs(err, ErrNotTelemetry)

	_, err = Decode(string(envelope.Seal(HeaderToken, "0,0,\x01\x02")))
	require.ErrorIs(err, ErrUnsupportedMode)

	_, err = Decode(string(envelope.Seal(HeaderToken, "0,2,[{")))
	require.ErrorIs(err, ErrMalformedContent)

	_, err = Decode(string(envelope.Seal(HeaderToken, "0,x,a=1")))
	require.ErrorIs(err, ErrMalformedContent)
}

func TestTransactionIndex(t *testing.T) {
	require := require.New(t)

	require.Equal(0, NewFrame("0", ModeString).TransactionIndex())
	require.Equal(9, NewFrame("9", ModeString).TransactionIndex())
	require.Equal(-1, NewFrame("10", ModeString).TransactionIndex())
	require.Equal(-1, NewFrame("local", ModeString).TransactionIndex())
}

func TestFrame_RoundTrip(t *testing.T) {
	items := []Item{
		{Key: KeyBaseName, Value: "\"RobotBase\""},
		{Key: KeyToolValue, Value: "{0,0,100,0,0,0}"},
	}

	for _, mode := range []Mode{ModeString, ModeJSON} {
		t.Run(mode.String(), func(t *testing.T) {
			require := require.New(t)

			buf, err := NewFrame("3", mode, items...).ToBytes()
			require.NoError(err)

			f, err := Decode(string(buf))
			require.NoError(err)
			require.Equal("3", f.TransactionID)
			require.Equal(mode, f.Mode)
			require.Equal(items, f.Items)
		})
	}

	_, err := NewFrame("3", ModeBinary).ToBytes()
	require.ErrorIs(t, err, ErrUnsupportedMode)
}

func FuzzDecode(f *testing.F) {
	f.Add("$TMSVR,20,local,2,Stick_Stop=1,*12")
	f.Add(string(envelope.Seal(HeaderToken, "1,1,Base_Name=\"RobotBase\"")))

	f.Fuzz(func(t *testing.T, raw string) {
		_, _ = Decode(raw)
	})
}
