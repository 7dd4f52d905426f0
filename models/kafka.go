package models

// HeaderRequestID is the envelope header carrying the originating request id.
const HeaderRequestID = "requestId"

// Headers added to dead-lettered copies; key and value stay untouched.
const (
	HeaderDeadLetterTopic = "x-dead-letter-topic"
	HeaderDeadLetterCode  = "x-dead-letter-code"
	HeaderDeadLetterError = "x-dead-letter-error"
)

// StateError is reported by the error event of a dead-lettered message whose
// entity could not be moved to an error state of its own.
const StateError State = "ERROR"

// Message is the bus envelope. Value is kept as raw bytes so a dead-letter
// republish can forward it untouched.
type Message struct {
	Topic     string
	Key       []byte
	Headers   map[string]string
	Value     []byte
	Partition int32
	Offset    int64
}

// RequestID returns the requestId header, falling back to the key.
func (m Message) RequestID() string {
	if id := m.Headers[HeaderRequestID]; id != "" {
		return id
	}
	return string(m.Key)
}

// Forward copies the envelope for republishing to another topic.
func (m Message) Forward(topic string) Message {
	headers := make(map[string]string, len(m.Headers))
	for k, v := range m.Headers {
		headers[k] = v
	}
	return Message{Topic: topic, Key: m.Key, Headers: headers, Value: m.Value}
}

type ConsumerConfig struct {
	Brokers         []string
	Name            string
	Topics          []string
	RecordsPerPoll  int
	MaxRedeliveries int
}
