// Package linemux multiplexes concurrent request/response exchanges over a
// single newline-delimited JSON connection.
//
// One Client holds one connection, by default to a unix socket. Each request
// gets an id; every message the service sends back names the id it answers,
// and linemux routes it to whoever is waiting for that id. A reply may be a
// single message or many: ok, error, done and redirect end an exchange,
// while item, data, event and progress messages may precede them.
//
// # Basic Usage
//
// Use Send to collect a complete reply:
//
//	client := linemux.NewClient(linemux.WithAddress("/run/svc.sock"))
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	msgs, err := client.Send(ctx, client.NewRequest("stat", "/etc"), 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(msgs[len(msgs)-1].Data)
//
// # Streaming
//
// Use Stream to consume a long reply as it arrives:
//
//	for msg, err := range client.Stream(ctx, client.NewRequest("list", "/")) {
//	    if err != nil {
//	        return err
//	    }
//	    if msg.Op == linemux.OpItem {
//	        fmt.Println(msg.Data["name"])
//	    }
//	}
//
// Breaking out of the loop releases the request id; later messages for it
// are dropped.
//
// Or use WithClient for automatic lifecycle management:
//
//	err := linemux.WithClient(ctx, func(c linemux.Client) error {
//	    _, err := c.Send(ctx, c.NewRequest("ping"), 0)
//	    return err
//	}, linemux.WithAddress("/run/svc.sock"))
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	client := linemux.NewClient(linemux.WithLogger(logger))
//
// # Error Handling
//
// Connection failures are *ConnectionError values with a stable code and
// match ErrConnectionRefused, ErrConnectionReset or ErrWriteFailed. Errors
// reported by the service are *ProtocolError values:
//
//	msgs, err := client.Send(ctx, req, 0)
//	if protoErr, ok := errors.AsType[*linemux.ProtocolError](err); ok {
//	    log.Printf("service said %s: %s", protoErr.Code, protoErr.Message)
//	}
//	if errors.Is(err, linemux.ErrTimeout) {
//	    // retrying is up to the caller
//	}
//
// Closing the client, or losing the connection, fails every pending
// exchange with ErrConnectionReset. Nothing is retried automatically.
package linemux
