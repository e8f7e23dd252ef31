package templates

import (
	"fmt"
	"html"
)

// RenderWaitingDigestEmail generates the HTML for the daily digest sent to
// available counselors when sessions are sitting in the waiting queue.
func RenderWaitingDigestEmail(counselorName string, waitingCount int) string {
	safeName := html.EscapeString(counselorName)

	plural := "session is"
	if waitingCount != 1 {
		plural = "sessions are"
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>Sessions Waiting - Beacon Health</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f7fa; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #2dd4bf 0%%, #0d9488 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .highlight-box { background: rgba(13, 148, 136, 0.08); border: 1px solid rgba(13, 148, 136, 0.3); border-radius: 12px; padding: 20px; margin: 20px 0; }
    .highlight-box h3 { color: #0d9488; margin-top: 0; font-size: 16px; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid rgba(0,0,0,0.08); }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Sessions Waiting for a Counselor</h1>
    </div>
    <div class="content">
      <h2>Hi %s,</h2>
      <p>There are people waiting to talk to someone.</p>

      <div class="highlight-box">
        <h3>%d waiting %s in the queue</h3>
        <p style="margin-bottom: 0;">These requests could not be matched automatically. Please open your dashboard and claim a session if you have capacity.</p>
      </div>

      <p>Thank you for being there for our community.</p>
    </div>
    <div class="footer">
      <p>Beacon Health Counseling Portal</p>
    </div>
  </div>
</body>
</html>`, safeName, waitingCount, plural)
}
