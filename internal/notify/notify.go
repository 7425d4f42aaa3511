package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"evdealer/backend/internal/domain"
)

// ArrivalNotice tells dealer staff a pre-ordered vehicle is ready for the
// customer's final payment.
type ArrivalNotice struct {
	DepositID     string `json:"deposit_id"`
	DealerID      string `json:"dealer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	VehicleModel  string `json:"vehicle_model"`
	VehicleColor  string `json:"vehicle_color"`
	NotifiedBy    string `json:"notified_by"`
}

func NoticeFor(d domain.Deposit, notifiedBy string) ArrivalNotice {
	return ArrivalNotice{
		DepositID:     d.ID,
		DealerID:      d.DealerID,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		VehicleModel:  d.VehicleModel,
		VehicleColor:  d.VehicleColor,
		NotifiedBy:    notifiedBy,
	}
}

type Notifier interface {
	NotifyArrival(ctx context.Context, notice ArrivalNotice) error
}

type Noop struct{}

func (Noop) NotifyArrival(context.Context, ArrivalNotice) error {
	return nil
}

// Publisher is the subset of the SNS client the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	client   Publisher
	topicARN string
}

func NewSNSNotifier(client Publisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// NewSNSNotifierFromEnv builds an SNS client from the default AWS credential chain.
func NewSNSNotifierFromEnv(ctx context.Context, region string, topicARN string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSNotifier(sns.NewFromConfig(cfg), topicARN), nil
}

func (n *SNSNotifier) NotifyArrival(ctx context.Context, notice ArrivalNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(fmt.Sprintf("Vehicle arrived: %s %s", notice.VehicleModel, notice.VehicleColor)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"dealer_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(notice.DealerID),
			},
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String("deposit.vehicle_arrived"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish arrival notice for %s: %w", notice.DepositID, err)
	}
	return nil
}
