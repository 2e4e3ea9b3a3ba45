// Package snapapi is a client for the SnapAPI screenshot and content
// extraction service.
//
// Create a client with an API key and call one method per endpoint:
//
//	client, err := snapapi.NewClient(os.Getenv("SNAPAPI_API_KEY"),
//		snapapi.WithRetry(3, time.Second, 10*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	capture, err := client.Screenshot(ctx, snapapi.ScreenshotOptions{
//		URL:      "https://example.com",
//		FullPage: true,
//	})
//	if err != nil {
//		return err
//	}
//	png, err := capture.Bytes()
//
// Options are validated before any request is sent; invalid options yield a
// *ValidationError. Errors reported by the service are *APIError values and
// can be classified with IsNotFound, IsRateLimited, IsQuotaExceeded and
// friends.
//
// Batch and async jobs run on the service. PollBatch and PollAsync wait for
// them with exponential backoff.
package snapapi
