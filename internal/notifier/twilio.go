package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type twilioNotifier struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioNotifier sends WhatsApp messages through Twilio. from must be a
// whatsapp:-prefixed sender number.
func NewTwilioNotifier(accountSID, authToken, from string) Notifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &twilioNotifier{client: client, from: from}
}

func (n *twilioNotifier) Send(ctx context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(n.from)
	params.SetTo(to)
	params.SetBody(body)

	type sendResult struct {
		sid string
		err error
	}
	ch := make(chan sendResult, 1)
	go func() {
		resp, err := n.client.Api.CreateMessage(params)
		res := sendResult{err: err}
		if err == nil && resp.Sid != nil {
			res.sid = *resp.Sid
		}
		ch <- res
	}()

	select {
	case <-ctx.Done():
		// Timed-out sends may still land; the job-status guard keeps a late
		// success from causing a duplicate on retry.
		return fmt.Errorf("%w: %v", ErrTransientDelivery, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return classify(res.err)
		}
		return nil
	}
}

// classify splits provider errors into transient (retry) and permanent.
// Provider-side 5xx and transport failures retry; 4xx means the request
// itself is bad and retrying cannot help.
func classify(err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		if restErr.Status >= 500 {
			return fmt.Errorf("%w: %v", ErrTransientDelivery, err)
		}
		return fmt.Errorf("permanent delivery failure: %w", err)
	}
	return fmt.Errorf("%w: %v", ErrTransientDelivery, err)
}
