package notify

import "github.com/jobsentinel/jobsentinel/internal/models"

type teamsPayload struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	Summary    string         `json:"summary"`
	ThemeColor string         `json:"themeColor"`
	Title      string         `json:"title"`
	Sections   []teamsSection `json:"sections"`
}

type teamsSection struct {
	ActivityTitle string     `json:"activityTitle"`
	Facts         []teamsFact `json:"facts"`
	Markdown      bool       `json:"markdown"`
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func buildTeamsPayload(job *models.Job) teamsPayload {
	title := truncateField(job.Title)
	company := truncateField(job.Company)

	return teamsPayload{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Summary:    company + " — " + title,
		ThemeColor: "0076D7",
		Title:      title + " at " + company,
		Sections: []teamsSection{
			{
				ActivityTitle: truncateField(job.URL),
				Facts: []teamsFact{
					{Name: "Location", Value: truncateField(job.Location)},
					{Name: "Score", Value: formatScore(job.Score)},
					{Name: "Breakdown", Value: truncateField(formatReasons(job.ScoreReasons))},
				},
				Markdown: true,
			},
		},
	}
}
