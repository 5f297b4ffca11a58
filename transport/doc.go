// Package transport implements the TCP client channel used for both robot connections.
//
// A Channel dials the robot, splits the inbound byte stream into messages with a
// bufio.SplitFunc and hands every message to the registered MessageHandlers from a
// dedicated dispatch goroutine, so a slow handler never stalls the socket reader.
// Outbound messages go through a bounded sender queue served by a single writer.
//
// Connection transitions are reported to StateHandlers. With auto-reconnect enabled,
// a lost connection is re-dialed with exponential backoff until Close is called.
//
//	cfg, _ := transport.NewConfig("192.168.1.10", 5890, transport.WithSplitFunc(transport.ScanCRLF))
//	ch, _ := transport.NewChannel(ctx, cfg)
//	ch.AddMessageHandler(func(_ *transport.Channel, msg string) { ... })
//	err := ch.Open()
package transport
