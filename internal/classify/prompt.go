package classify

import "fmt"

// maxDigestBytes clips the digest before prompting to stay inside the
// model's context budget.
const maxDigestBytes = 8000

const systemPrompt = "You are a Linux system security analyst. " +
	"Provide concise, actionable assessments of log digests."

const userPromptFormat = `Analyze the following log digest and return a structured assessment.

Report only findings that genuinely require operator attention. Ignore the
routine background noise of an internet-facing host: failed SSH logins,
blocked scan attempts, 4xx responses to vulnerability probes, fail2ban
activity, ordinary service restarts, cron runs, and package updates.

Severity scale:
- "none": nothing notable beyond routine noise
- "low": minor items worth a glance
- "medium": should be reviewed, not urgent
- "high": needs attention within 24 hours
- "critical": needs immediate attention

Respond with a JSON object in exactly this shape:
{
  "severity": "none|low|medium|high|critical",
  "issues_found": true|false,
  "summary": "one-line summary",
  "details": {
    "finding name": "free-form explanation or statistic"
  }
}

Log digest:
%s`

// buildMessages assembles the fixed instruction payload around the digest.
func buildMessages(digest string) []chatMessage {
	if len(digest) > maxDigestBytes {
		digest = digest[:maxDigestBytes]
	}
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptFormat, digest)},
	}
}
