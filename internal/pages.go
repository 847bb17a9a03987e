package fleetauth

import (
	"bytes"
	"fmt"

	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
)

// Pages shown in the browser after the redirect lands. Templates are
// embedded so the binary does not depend on a pages/ directory at runtime.

const receivedPageTemplate = `<html>
<head><title>Tesla auth received</title></head>
<body>
<h3>Tesla auth received.</h3>
<p>You can close this tab and return to Terminal.</p>
</body>
</html>`

const errorPageTemplate = `<html>
<head><title>Tesla auth failed</title></head>
<body>
<h3>Authorization failed.</h3>
<p>The provider reported: {{ reason }}</p>
<p>Close this tab and check the terminal for details.</p>
</body>
</html>`

func renderReceivedPage() ([]byte, error) {
	return renderPage(receivedPageTemplate, map[string]interface{}{})
}

func renderErrorPage(reason string) ([]byte, error) {
	return renderPage(errorPageTemplate, map[string]interface{}{
		"reason": reason,
	})
}

func renderPage(source string, vars map[string]interface{}) ([]byte, error) {
	template, err := gonja.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %v", err)
	}
	var buf bytes.Buffer
	if err := template.Execute(&buf, exec.NewContext(vars)); err != nil {
		return nil, fmt.Errorf("failed to render page: %v", err)
	}
	return buf.Bytes(), nil
}
