package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const smsQueueSize = 64

type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier texts warnings and errors to an operator phone. Successes
// are not sent. Messages go out from a background worker; when the queue is
// full new ones are dropped and logged.
type TwilioNotifier struct {
	sender messageSender
	from   string
	to     string
	log    *zap.Logger

	queue     chan Notification
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewTwilioNotifier(accountSid, authToken, from, to string, log *zap.Logger) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return newTwilioNotifier(client.Api, from, to, log)
}

func newTwilioNotifier(sender messageSender, from, to string, log *zap.Logger) *TwilioNotifier {
	t := &TwilioNotifier{
		sender: sender,
		from:   from,
		to:     to,
		log:    log,
		queue:  make(chan Notification, smsQueueSize),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *TwilioNotifier) Notify(_ context.Context, n Notification) {
	if n.Level == LevelSuccess || t.to == "" {
		return
	}
	select {
	case t.queue <- n:
	default:
		t.log.Warn("sms queue full, dropping notification", zap.String("title", n.Title))
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
func (t *TwilioNotifier) Close() {
	t.closeOnce.Do(func() { close(t.queue) })
	t.wg.Wait()
}

func (t *TwilioNotifier) run() {
	defer t.wg.Done()
	for n := range t.queue {
		t.send(n)
	}
}

func (t *TwilioNotifier) send(n Notification) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(smsBody(n))

	resp, err := t.sender.CreateMessage(params)
	if err != nil {
		t.log.Warn("sms notification failed", zap.String("to", t.to), zap.Error(err))
		return
	}
	if resp != nil && resp.Sid != nil {
		t.log.Debug("sms notification sent", zap.String("sid", *resp.Sid))
	}
}

func smsBody(n Notification) string {
	if n.Reference != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", n.Level, n.Title, n.Reference, n.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Level, n.Title, n.Message)
}
