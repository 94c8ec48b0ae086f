package queue

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// AzureQueue is a Publisher and Receiver backed by an Azure Storage queue.
// Visibility timeouts and redelivery are the storage service's concern.
type AzureQueue struct {
	client *azqueue.QueueClient
}

// NewAzureQueue connects to the control queue under the given storage
// service URL, e.g. https://account.queue.core.windows.net.
func NewAzureQueue(serviceURL string, credential azcore.TokenCredential) (*AzureQueue, error) {
	service, err := azqueue.NewServiceClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("creating queue service client: %w", err)
	}
	return &AzureQueue{client: service.NewQueueClient(ControlQueueName)}, nil
}

func (q *AzureQueue) Publish(ctx context.Context, msg VMControlMessage) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueMessage(ctx, string(body), nil); err != nil {
		return fmt.Errorf("enqueueing control message: %w", err)
	}
	return nil
}

func (q *AzureQueue) Receive(ctx context.Context) (*Message, error) {
	resp, err := q.client.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("receiving control message: %w", err)
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}

	raw := resp.Messages[0]
	msg := &Message{}
	if raw.MessageID != nil {
		msg.MessageID = *raw.MessageID
	}
	if raw.PopReceipt != nil {
		msg.PopReceipt = *raw.PopReceipt
	}
	if raw.MessageText != nil {
		msg.Body = []byte(*raw.MessageText)
	}
	return msg, nil
}

func (q *AzureQueue) Delete(ctx context.Context, msg *Message) error {
	if _, err := q.client.DeleteMessage(ctx, msg.MessageID, msg.PopReceipt, nil); err != nil {
		return fmt.Errorf("deleting control message: %w", err)
	}
	return nil
}
