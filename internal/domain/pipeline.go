package domain

// Pipeline represents a HubSpot CRM pipeline (e.g. deals "Sales Pipeline").
type Pipeline struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	DisplayOrder int             `json:"displayOrder"`
	Stages       []PipelineStage `json:"stages"`
	Archived     bool            `json:"archived"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// PipelineStage represents a single stage within a pipeline.
type PipelineStage struct {
	ID           string            `json:"id"`
	Label        string            `json:"label"`
	DisplayOrder int               `json:"displayOrder"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Archived     bool              `json:"archived"`
	CreatedAt    string            `json:"createdAt,omitempty"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
}

// DealStage is the trimmed stage shape handed to the front end.
type DealStage struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// DealStages projects the stages of p in the order HubSpot returned them.
func (p Pipeline) DealStages() []DealStage {
	stages := make([]DealStage, len(p.Stages))
	for i, s := range p.Stages {
		stages[i] = DealStage{Label: s.Label, ID: s.ID}
	}
	return stages
}
