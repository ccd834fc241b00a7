package relay

import (
	"fmt"
	"html"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// landingText picks the heading and message for the landing page.
func landingText(ret domain.OAuthReturn, ok bool) (string, string) {
	if !ok {
		return "linkdeck is waiting", "Finish signing in from the tab that just opened, then return to your terminal."
	}

	name := "The provider"
	if ret.Provider != "" {
		name = ret.Provider.DisplayName()
	}
	switch {
	case ret.Error != "":
		return "Authorization came back here", fmt.Sprintf("%s reported: %s. Return to your terminal and try again.", name, ret.Error)
	case ret.Success:
		return "Authorization came back here", fmt.Sprintf("%s was linked in this window instead of a new tab. Return to your terminal to check the result.", name)
	default:
		return "Authorization came back here", "Return to your terminal to check the result."
	}
}

//nolint:misspell // CSS properties use American spelling
func landingHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>linkdeck</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #FAFAFA;
        }
        .container {
            text-align: center;
            background: white;
            padding: 48px 64px;
            border-radius: 16px;
            border: 1px solid #C7C8CC;
            box-shadow: 0 4px 24px rgba(0,0,0,0.08);
            max-width: 480px;
        }
        h1 {
            color: #333F50;
            margin: 0 0 8px 0;
            font-size: 24px;
            font-weight: 600;
        }
        p {
            color: #7B8088;
            margin: 0;
            font-size: 16px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}
