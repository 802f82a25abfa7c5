package commsutil

import (
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

const connectTestPrefix = "commsutil:connect_test"

func TestConnect_InvalidURL(t *testing.T) {
	nc, err := Connect("invalid://not-a-nats-server", "test-client")
	if err == nil {
		if nc != nil {
			nc.Close()
		}
		t.Fatalf("%s - expected error for invalid URL", connectTestPrefix)
	}
	if nc != nil {
		t.Errorf("%s - expected nil connection on error", connectTestPrefix)
	}
}

func TestConnect_RespondRoundTrip(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", connectTestPrefix, err)
	}
	go srv.Start()
	defer srv.Shutdown()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatalf("%s - server not ready", connectTestPrefix)
	}

	nc, err := Connect(srv.ClientURL(), "test-client", comms.MaxReconnects(0))
	if err != nil {
		t.Fatalf("%s - connect: %v", connectTestPrefix, err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe("test.echo", func(msg *comms.Msg) {
		var in map[string]interface{}
		if err := DecodePayload(msg.Data, &in); err != nil {
			t.Errorf("%s - decode: %v", connectTestPrefix, err)
			return
		}
		if err := Respond(msg, map[string]interface{}{"echo": in["value"]}); err != nil {
			t.Errorf("%s - respond: %v", connectTestPrefix, err)
		}
	})
	if err != nil {
		t.Fatalf("%s - subscribe: %v", connectTestPrefix, err)
	}
	defer sub.Unsubscribe()

	reply, err := nc.Request("test.echo", []byte(`{"value":"<b>"}`), 2*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", connectTestPrefix, err)
	}
	if string(reply.Data) != `{"echo":"<b>"}` {
		t.Errorf("%s - reply = %s", connectTestPrefix, reply.Data)
	}
}
