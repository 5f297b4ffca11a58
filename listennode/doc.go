// Package listennode implements the frame codec of the TM robot listen node (command) channel.
//
// A listen node frame wraps a script or a status query into the shared envelope:
//
//	$TMSCT,<len>,<ScriptID>,<script>,*<CS>\r\n   external script / script response
//	$TMSTA,<len>,<SubCmd>,<content>,*<CS>\r\n    status query / status response
//	$CPERR,<len>,<ErrorCode>,*<CS>\r\n           communication error reported by the robot
//
// Frames are immutable once constructed. The same Frame type is used for outbound
// requests and inbound responses.
package listennode
