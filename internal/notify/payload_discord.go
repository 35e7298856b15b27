package notify

import "github.com/jobsentinel/jobsentinel/internal/models"

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title  string         `json:"title"`
	URL    string         `json:"url"`
	Fields []discordField `json:"fields"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func buildDiscordPayload(job *models.Job) discordPayload {
	title := truncateField(job.Title)
	company := truncateField(job.Company)

	return discordPayload{
		Content: "New match: " + title + " at " + company,
		Embeds: []discordEmbed{
			{
				Title: title,
				URL:   truncateField(job.URL),
				Fields: []discordField{
					{Name: "Company", Value: company, Inline: true},
					{Name: "Location", Value: truncateField(job.Location), Inline: true},
					{Name: "Score", Value: formatScore(job.Score), Inline: true},
					{Name: "Breakdown", Value: truncateField(formatReasons(job.ScoreReasons))},
				},
			},
		},
	}
}
