package notify

import "github.com/jobsentinel/jobsentinel/internal/models"

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string        `json:"type"`
	Text *slackText    `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildSlackPayload(job *models.Job) slackPayload {
	title := truncateField(job.Title)
	company := truncateField(job.Company)
	location := truncateField(job.Location)

	return slackPayload{
		Text: company + " — " + title,
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: "*" + title + "* at *" + company + "*"},
			},
			{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*Location:*\n" + location},
					{Type: "mrkdwn", Text: "*Score:*\n" + formatScore(job.Score)},
					{Type: "mrkdwn", Text: "*Breakdown:*\n" + truncateField(formatReasons(job.ScoreReasons))},
					{Type: "mrkdwn", Text: "*Link:*\n" + truncateField(job.URL)},
				},
			},
		},
	}
}
