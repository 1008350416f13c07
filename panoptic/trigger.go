package panoptic

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/model"
)

// CollectTrigger asks the collector module for one run.
type CollectTrigger struct {
	ID     string        `json:"id"`
	Kind   CollectKind   `json:"kind"`
	Reason TriggerReason `json:"reason"`
	At     time.Time     `json:"at"`
}

func NewCollectTrigger(kind CollectKind, reason TriggerReason, at time.Time) CollectTrigger {
	if kind == "" {
		kind = COLLECT_FRESH
	}
	return CollectTrigger{ID: watermill.NewUUID(), Kind: kind, Reason: reason, At: at}
}

func PublishTrigger(bus *gochannel.GoChannel, trigger CollectTrigger) error {
	return publishJson(bus, TOPIC_COLLECT_TRIGGER, trigger.ID, trigger)
}

func DecodeTrigger(msg *message.Message) (CollectTrigger, error) {
	trigger := CollectTrigger{}
	if err := json.Unmarshal(msg.Payload, &trigger); err != nil {
		return trigger, errors.Wrap(err, "malformed collect trigger")
	}
	switch trigger.Kind {
	case "":
		trigger.Kind = COLLECT_FRESH
	case COLLECT_FRESH, COLLECT_COURSES:
	default:
		return trigger, errors.Errorf("unknown collect kind %q", trigger.Kind)
	}
	return trigger, nil
}

func PublishRunReport(bus *gochannel.GoChannel, report *model.RunReport) error {
	if report == nil {
		return nil
	}
	return publishJson(bus, TOPIC_RUN_REPORT, report.RunID, report)
}

func DecodeRunReport(msg *message.Message) (*model.RunReport, error) {
	report := &model.RunReport{}
	if err := json.Unmarshal(msg.Payload, report); err != nil {
		return nil, errors.Wrap(err, "malformed run report")
	}
	return report, nil
}

func publishJson(bus *gochannel.GoChannel, topic, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id == "" {
		id = watermill.NewUUID()
	}
	return bus.Publish(topic, message.NewMessage(id, data))
}
