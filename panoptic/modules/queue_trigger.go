package modules

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Luismorlan/honeybee/panoptic"
	"github.com/Luismorlan/honeybee/utils"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	maxMessagesPerPoll = 10
	defaultPollBackoff = 5 * time.Second
)

type QueueTriggerConfig struct {
	Name string
	// Wait this long after a failed poll.
	PollBackoff time.Duration
}

// QueueTrigger turns manual trigger messages from a queue into collect
// triggers. A message body may be empty, "fresh", "courses" or
// {"kind": "courses"}.
type QueueTrigger struct {
	Config QueueTriggerConfig

	Reader utils.MessageQueueReader

	EventBus *gochannel.GoChannel
}

func NewQueueTrigger(config QueueTriggerConfig, reader utils.MessageQueueReader, e *gochannel.GoChannel) *QueueTrigger {
	if config.PollBackoff <= 0 {
		config.PollBackoff = defaultPollBackoff
	}
	return &QueueTrigger{
		Config:   config,
		Reader:   reader,
		EventBus: e,
	}
}

func ParseTriggerKind(body string) panoptic.CollectKind {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "{") {
		parsed := struct {
			Kind string `json:"kind"`
		}{}
		if err := json.Unmarshal([]byte(body), &parsed); err == nil {
			body = parsed.Kind
		}
	}
	if panoptic.CollectKind(strings.ToLower(body)) == panoptic.COLLECT_COURSES {
		return panoptic.COLLECT_COURSES
	}
	return panoptic.COLLECT_FRESH
}

// Poll reads one batch and publishes a trigger per message. Messages are
// deleted once their trigger is on the bus.
func (q *QueueTrigger) Poll(ctx context.Context) (int, error) {
	msgs, err := q.Reader.ReceiveMessages(ctx, maxMessagesPerPoll)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, msg := range msgs {
		body, err := msg.Read()
		if err != nil {
			Logger.Log.Warnf("queue trigger %s: %s", q.Name(), err)
		}
		trigger := panoptic.NewCollectTrigger(ParseTriggerKind(body), panoptic.TRIGGER_QUEUE, time.Now())
		if err := panoptic.PublishTrigger(q.EventBus, trigger); err != nil {
			Logger.Log.Errorf("queue trigger %s fail to publish trigger, error: %s", q.Name(), err)
			continue
		}
		published++
		if err := q.Reader.DeleteMessage(ctx, msg); err != nil {
			Logger.Log.Errorf("queue trigger %s: %s", q.Name(), err)
		}
	}
	return published, nil
}

func (q *QueueTrigger) RunModule(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if _, err := q.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			Logger.Log.Errorf("queue trigger %s fail to poll, error: %s", q.Name(), err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(q.Config.PollBackoff):
			}
		}
	}
}

func (q *QueueTrigger) Name() string {
	return q.Config.Name
}

func (q *QueueTrigger) Shutdown() {}
