package utils

import (
	"context"
	"os"
	"strconv"
	"time"

	Logger "github.com/Luismorlan/honeybee/utils/log"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"
)

const (
	defaultAwsRegion = "ap-northeast-2"

	// SQS limits.
	maxWaitSeconds   = 20
	maxBatchMessages = 10
)

// AwsRegion returns AWS_REGION or the default deployment region.
func AwsRegion() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return defaultAwsRegion
}

// MessageQueueReader is the consumer side of the manual trigger queue.
type MessageQueueReader interface {
	ReceiveMessages(ctx context.Context, maxNumberOfMessages int64) ([]*SQSMessageQueueMessage, error)
	DeleteMessage(ctx context.Context, msg *SQSMessageQueueMessage) error
}

type SQSMessageQueueMessage struct {
	Message       *string
	MessageId     *string
	ReceivedTimes int
	SentAt        time.Time
	ReceiptHandle string
}

func (msg *SQSMessageQueueMessage) Read() (string, error) {
	if msg.Message == nil {
		return "", errors.New("empty message body")
	}
	return *msg.Message, nil
}

// sqsQueue resolves a queue name once and keeps its url.
type sqsQueue struct {
	queueName string
	url       string
	client    sqsiface.SQSAPI
}

func newSqsClient() (sqsiface.SQSAPI, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(AwsRegion()),
	})
	if err != nil {
		return nil, err
	}
	return sqs.New(sess), nil
}

func resolveQueue(client sqsiface.SQSAPI, queueName string) (sqsQueue, error) {
	if queueName == "" {
		return sqsQueue{}, errors.New("please specify queue name")
	}
	out, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == sqs.ErrCodeQueueDoesNotExist {
			return sqsQueue{}, errors.Errorf("unable to find queue %q", queueName)
		}
		return sqsQueue{}, errors.Wrapf(err, "unable to resolve queue %q", queueName)
	}
	return sqsQueue{queueName: queueName, url: aws.StringValue(out.QueueUrl), client: client}, nil
}

// SQSMessageQueueReader long-polls one queue.
type SQSMessageQueueReader struct {
	sqsQueue
	readTimeout int64
}

func NewSQSMessageQueueReader(queueName string, readingTimeout int64) (*SQSMessageQueueReader, error) {
	client, err := newSqsClient()
	if err != nil {
		return nil, err
	}
	return NewSQSMessageQueueReaderWithClient(client, queueName, readingTimeout)
}

func NewSQSMessageQueueReaderWithClient(client sqsiface.SQSAPI, queueName string, readingTimeout int64) (*SQSMessageQueueReader, error) {
	if readingTimeout < 0 || readingTimeout > maxWaitSeconds {
		return nil, errors.Errorf("readingTimeout should be >= 0 and <= %d", maxWaitSeconds)
	}
	queue, err := resolveQueue(client, queueName)
	if err != nil {
		return nil, err
	}
	return &SQSMessageQueueReader{sqsQueue: queue, readTimeout: readingTimeout}, nil
}

func (reader *SQSMessageQueueReader) DeleteMessage(ctx context.Context, msg *SQSMessageQueueMessage) error {
	_, err := reader.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(reader.url),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return errors.Wrapf(err, "fail to delete message from %s", reader.queueName)
	}
	return nil
}

// ReceiveMessages returns as soon as any message is available, or after the
// read timeout with none.
func (reader *SQSMessageQueueReader) ReceiveMessages(ctx context.Context, maxNumberOfMessages int64) ([]*SQSMessageQueueMessage, error) {
	if maxNumberOfMessages < 1 || maxNumberOfMessages > maxBatchMessages {
		return nil, errors.Errorf("maxNumberOfMessages should be >= 1 and <= %d", maxBatchMessages)
	}

	result, err := reader.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl: aws.String(reader.url),
		AttributeNames: aws.StringSlice([]string{
			sqs.MessageSystemAttributeNameSentTimestamp,
			sqs.MessageSystemAttributeNameApproximateReceiveCount,
		}),
		MaxNumberOfMessages: aws.Int64(maxNumberOfMessages),
		WaitTimeSeconds:     aws.Int64(reader.readTimeout),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %q", reader.queueName)
	}

	if len(result.Messages) > 0 {
		Logger.Log.Infof("received %d messages from queue %s", len(result.Messages), reader.queueName)
	}

	res := make([]*SQSMessageQueueMessage, 0, len(result.Messages))
	for _, msg := range result.Messages {
		parsed := &SQSMessageQueueMessage{
			Message:       msg.Body,
			MessageId:     msg.MessageId,
			ReceiptHandle: aws.StringValue(msg.ReceiptHandle),
		}
		if val, ok := msg.Attributes[sqs.MessageSystemAttributeNameApproximateReceiveCount]; ok {
			parsed.ReceivedTimes, _ = strconv.Atoi(aws.StringValue(val))
		}
		if val, ok := msg.Attributes[sqs.MessageSystemAttributeNameSentTimestamp]; ok {
			if ms, err := strconv.ParseInt(aws.StringValue(val), 10, 64); err == nil {
				parsed.SentAt = time.UnixMilli(ms)
			}
		}
		res = append(res, parsed)
	}
	return res, nil
}

// SQSMessageQueueWriter sends manual trigger messages.
type SQSMessageQueueWriter struct {
	sqsQueue
}

func NewSQSMessageQueueWriter(queueName string) (*SQSMessageQueueWriter, error) {
	client, err := newSqsClient()
	if err != nil {
		return nil, err
	}
	return NewSQSMessageQueueWriterWithClient(client, queueName)
}

func NewSQSMessageQueueWriterWithClient(client sqsiface.SQSAPI, queueName string) (*SQSMessageQueueWriter, error) {
	queue, err := resolveQueue(client, queueName)
	if err != nil {
		return nil, err
	}
	return &SQSMessageQueueWriter{sqsQueue: queue}, nil
}

// SendMessage enqueues body and returns the message id.
func (writer *SQSMessageQueueWriter) SendMessage(ctx context.Context, body string) (string, error) {
	out, err := writer.client.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(writer.url),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return "", errors.Wrapf(err, "fail to send message to %s", writer.queueName)
	}
	return aws.StringValue(out.MessageId), nil
}
