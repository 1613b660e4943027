package pipeline

import (
	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
)

// Contract projects a completed document into the served shape, with fields
// nested under their library category. Fields the library does not know are
// dropped.
func Contract(lib *patterns.Library, doc *entity.Document, res *entity.ContractResult) *entity.Contract {
	c := &entity.Contract{
		ID:                doc.ID,
		Filename:          doc.Filename,
		Status:            doc.Status,
		Fields:            map[constants.Category]map[string]entity.ExtractedField{},
		ConfidenceSummary: res.ConfidenceSummary,
		Gaps:              res.Gaps,
		OverallScore:      res.OverallScore,
		Processing:        res.Processing,
		Pages:             res.Pages,
	}
	if c.Gaps == nil {
		c.Gaps = []entity.ContractGap{}
	}
	for name, f := range res.Fields {
		def, ok := lib.Lookup(name)
		if !ok {
			continue
		}
		group := c.Fields[def.Category]
		if group == nil {
			group = map[string]entity.ExtractedField{}
			c.Fields[def.Category] = group
		}
		group[name] = f
	}
	return c
}
