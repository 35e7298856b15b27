package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/httpclient"
)

func sendWebhook(ctx context.Context, client *httpclient.Client, logger arbor.ILogger, kind, webhookURL string, allowTestURLs bool, payload interface{}) error {
	if err := common.ValidateWebhookURLForEnv(kind, webhookURL, allowTestURLs); err != nil {
		return apperr.Wrap(apperr.KindInvalidWebhook, "webhook url rejected", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal webhook payload", err)
	}

	policy := newRetryPolicy()
	statusCode, err := policy.execute(ctx, logger, func() (int, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return 0, reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := client.Do(req)
		if doErr != nil {
			return 0, doErr
		}
		defer resp.Body.Close()
		return resp.StatusCode, nil
	})

	if err != nil {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("%s webhook delivery failed", kind), err)
	}
	if statusCode >= 400 {
		return apperr.New(apperr.KindInternal, fmt.Sprintf("%s webhook returned status %d", kind, statusCode))
	}
	return nil
}
