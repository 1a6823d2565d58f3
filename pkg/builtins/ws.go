package builtins

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/object"
)

// wsModule bridges gorilla/websocket connections to the event bus.
// ws.connect dials a connection and returns its integer handle; ws.listen
// starts a server (and returns None) whose accepted connections go into the
// same handle table. Frames received off the wire are republished as
// eventbus.Input events (the same kind input() subscribes to, so a script
// reads network input through the identical channel as console input), and
// ws.send ships a str out over the wire. Grounded on sentra's websocket
// dial/serve pair.
func wsModule(bus *eventbus.Bus) *Module {
	conns := make(map[int64]*websocket.Conn)
	var nextHandle int64
	upgrader := websocket.Upgrader{}

	m := newModule("ws")

	m.add("connect", func(c object.Caller, args []object.Value) (object.Value, error) {
		url, err := oneString(args, "ws.connect")
		if err != nil {
			return nil, err
		}
		conn, _, derr := websocket.DefaultDialer.Dial(url, nil)
		if derr != nil {
			return nil, errors.Wrap(derr, "ws.connect")
		}
		nextHandle++
		h := nextHandle
		conns[h] = conn
		go pumpInbound(bus, conn)
		return object.NewInt(h), nil
	})

	m.add("listen", func(c object.Caller, args []object.Value) (object.Value, error) {
		addr, err := oneString(args, "ws.listen")
		if err != nil {
			return nil, err
		}
		errCh := make(chan error, 1)
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				conn, uerr := upgrader.Upgrade(w, r, nil)
				if uerr != nil {
					return
				}
				nextHandle++
				conns[nextHandle] = conn
				pumpInbound(bus, conn)
			})
			errCh <- http.ListenAndServe(addr, mux)
		}()
		return object.None, nil
	})

	m.add("send", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 2 {
			return nil, errArgCount("ws.send", 2, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("ws.send() expects a handle")
		}
		text, ok := args[1].(*object.Str)
		if !ok {
			return nil, typeErr("ws.send() expects a str payload")
		}
		conn, ok := conns[h.V.Int64()]
		if !ok {
			return nil, errors.New("ValueError: ws.send: unknown handle")
		}
		return object.None, errors.Wrap(conn.WriteMessage(websocket.TextMessage, []byte(text.Val)), "ws.send")
	})

	m.add("close", func(c object.Caller, args []object.Value) (object.Value, error) {
		h, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("ws.close() expects a handle")
		}
		conn, ok := conns[h.V.Int64()]
		if !ok {
			return nil, errors.New("ValueError: ws.close: unknown handle")
		}
		delete(conns, h.V.Int64())
		return object.None, errors.Wrap(conn.Close(), "ws.close")
	})

	return m
}

// pumpInbound runs on its own goroutine for the lifetime of the socket,
// republishing every text frame as an eventbus.Input event. It never
// touches VM state directly: the event loop picks up queued input the
// same way it would a console line.
func pumpInbound(bus *eventbus.Bus, conn *websocket.Conn) {
	defer conn.Close()
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		bus.Publish(eventbus.Input, string(payload))
	}
}
