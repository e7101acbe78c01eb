package types

type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

type Message struct {
	ID        string           `json:"id" yaml:"id"`
	RunID     string           `json:"runId" yaml:"runId"`
	Direction MessageDirection `json:"direction" yaml:"direction"`
	Text      string           `json:"text" yaml:"text"`
	SentTime  string           `json:"sentTime,omitempty" yaml:"sentTime,omitempty"`
}
