package sink

import (
	"encoding/json"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/utils"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	SnsArnEnvKey = "HONEYBEE_SNS_ARN"
	testSnsArn   = "arn:aws:sns:ap-northeast-2:000000000000:honeybee_run_reports_test"
	messageGroup = "run_reports"
)

// SnsSink publishes run reports to a FIFO topic, deduplicated by run id.
type SnsSink struct {
	arn    string
	client snsiface.SNSAPI
}

func NewSnsSink() (*SnsSink, error) {
	// AWS client session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(utils.AwsRegion()),
	})
	if err != nil {
		return nil, err
	}

	arn := os.Getenv(SnsArnEnvKey)
	if arn == "" {
		if utils.IsProdEnv() {
			return nil, errors.Errorf("%s must be set in prod", SnsArnEnvKey)
		}
		arn = testSnsArn
	}
	return NewSnsSinkWithClient(sns.New(sess), arn), nil
}

func NewSnsSinkWithClient(client snsiface.SNSAPI, arn string) *SnsSink {
	return &SnsSink{arn: arn, client: client}
}

func (s *SnsSink) Push(report *model.RunReport) error {
	if report == nil {
		Logger.Log.Warn("push empty run report into topic")
		return nil
	}
	serialized, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "fail to serialize run report")
	}
	msg := string(serialized)
	group := messageGroup
	// ignore the returned seq number for FIFO
	_, err = s.client.Publish(&sns.PublishInput{
		Message:                &msg,
		TopicArn:               &s.arn,
		MessageGroupId:         &group,
		MessageDeduplicationId: &report.RunID,
	})
	return err
}
