package support

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/eanscan/internal/server"
)

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startTestHTTPServer(server.Config{TimeoutSec: 10, CORSOrigin: "*"})
}

func (testCtx *TestContext) theServerIsRunningWithRequestsPerMinute(limit int) error {
	return testCtx.startTestHTTPServer(server.Config{
		TimeoutSec: 10,
		RateLimit:  server.RateLimitConfig{Enabled: true, RequestsPerMinute: limit},
	})
}

func (testCtx *TestContext) iRequest(method, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}
	return testCtx.doRequest(req)
}

func (testCtx *TestContext) iUpload(name string) error {
	return testCtx.uploadImage(testCtx.Path(name), nil)
}

func (testCtx *TestContext) iUploadAlongTheRay(name, ray string) error {
	parts := strings.Split(ray, ",")
	if len(parts) != 4 {
		return fmt.Errorf("ray %q needs four numbers", ray)
	}
	fields := map[string]string{}
	for i, key := range []string{"x1", "y1", "x2", "y2"} {
		fields[key] = strings.TrimSpace(parts[i])
	}
	return testCtx.uploadImage(testCtx.Path(name), fields)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	var data any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	v, err := lookupPath(data, path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("%s = %q, want %q", path, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != expected {
		return fmt.Errorf("header %s = %q, want %q", name, got, expected)
	}
	return nil
}

// RegisterServerSteps registers HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithRequestsPerMinute)
	sc.Step(`^I send a (GET|POST) request to "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)"$`, testCtx.iUpload)
	sc.Step(`^I upload "([^"]*)" along the ray "([^"]*)"$`, testCtx.iUploadAlongTheRay)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
