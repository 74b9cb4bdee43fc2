package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSON(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{StatusUpdate("recording_command", "Listening for command..."), `{"status":"recording_command","message":"Listening for command..."}`},
		{NewMessage(SenderUser, "turn off the lights"), `{"sender":"user","text":"turn off the lights"}`},
		{RefreshStates(), `{}`},
		{Event{Name: "bare"}, `{}`},
	}

	for _, tc := range cases {
		got, err := tc.ev.JSON()
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(got))
	}
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeMQTTClient struct {
	mu           sync.Mutex
	messages     []published
	err          error
	disconnected bool
}

func (f *fakeMQTTClient) Publish(topic string, qos byte, _ bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})

	return newFakeToken(f.err)
}

func (f *fakeMQTTClient) Disconnect(uint) {
	f.disconnected = true
}

func TestMQTTPublish(t *testing.T) {
	client := &fakeMQTTClient{}
	pub := newMQTT(client, "home/assistant", 1)

	pub.Publish(NewMessage(SenderAssistant, "Turning off the kitchen lights."))
	pub.Publish(RefreshStates())

	require.Len(t, client.messages, 2)
	assert.Equal(t, "home/assistant/new_message", client.messages[0].topic)
	assert.Equal(t, byte(1), client.messages[0].qos)
	assert.JSONEq(t, `{"sender":"assistant","text":"Turning off the kitchen lights."}`, string(client.messages[0].payload))
	assert.Equal(t, "home/assistant/refresh_states", client.messages[1].topic)

	require.NoError(t, pub.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTPublish_ErrorIsNotFatal(t *testing.T) {
	client := &fakeMQTTClient{err: errors.New("not connected")}
	pub := newMQTT(client, "", 0)

	assert.NotPanics(t, func() { pub.Publish(RefreshStates()) })
	assert.Equal(t, "refresh_states", client.messages[0].topic)
}

func TestNewMQTT_Validation(t *testing.T) {
	_, err := NewMQTT(nil)
	assert.Error(t, err)

	_, err = NewMQTT(&MQTTConfig{})
	assert.Error(t, err)

	_, err = NewMQTT(&MQTTConfig{Broker: "tcp://localhost:1883", QoS: 3})
	assert.Error(t, err)
}

func TestBrokerPublish(t *testing.T) {
	pub, err := NewBroker(&BrokerConfig{Address: "127.0.0.1:0", TopicPrefix: "home"})
	require.NoError(t, err)
	defer pub.Close()

	received := make(chan packets.Packet, 1)

	server := pub.(*brokerImpl).server
	err = server.Subscribe("home/#", 1, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		received <- pk
	})
	require.NoError(t, err)

	pub.Publish(StatusUpdate("cooldown", "Waiting before listening again..."))

	select {
	case pk := <-received:
		assert.Equal(t, "home/status_update", pk.TopicName)
		assert.JSONEq(t, `{"status":"cooldown","message":"Waiting before listening again..."}`, string(pk.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered to the inline subscriber")
	}
}

func TestLogPublisher(t *testing.T) {
	pub := NewLog()

	assert.NotPanics(t, func() { pub.Publish(RefreshStates()) })
	assert.NoError(t, pub.Close())
}
