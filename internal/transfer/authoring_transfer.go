package transfer

type DraftCreation struct {
	ContentID   string   `json:"contentId"`
	Caption     string   `json:"caption"`
	ImageURLs   []string `json:"imageUrls"`
	DisplayMode string   `json:"displayMode"`
}

type ScheduleRequest struct {
	DraftID       string `json:"draftId"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
}

type TemplateCreation struct {
	Name   string `json:"name"`
	Rules  string `json:"rules"`
	Active bool   `json:"active"`
}
