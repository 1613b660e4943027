package server

import (
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

func parseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, common.InvalidInput("id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.InvalidInput("id must be a UUID")
	}
	return id, nil
}

func parseStatus(raw string) (*constants.ProcessingStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	st, ok := constants.ParseStatus(raw)
	if !ok {
		return nil, common.InvalidInputf("unknown status %q", raw)
	}
	return &st, nil
}

// exportQuery parses the optional status and category filters of an export.
func exportQuery(status, category string) (export.Query, error) {
	st, err := parseStatus(status)
	if err != nil {
		return export.Query{}, err
	}
	q := export.Query{Status: st}
	if category = strings.TrimSpace(category); category != "" {
		cat, ok := constants.ParseCategory(category)
		if !ok {
			return export.Query{}, common.InvalidInputf("unknown category %q, want one of %s",
				category, strings.Join(constants.CategoryNames(), ", "))
		}
		q.Category = &cat
	}
	return q, nil
}

// listParams is the transport-neutral form of a list request. Transports
// fill Page and Limit with the defaults when the caller omits them.
type listParams struct {
	Page      int
	Limit     int
	Status    string
	SortBy    string
	SortOrder string
}

func (p listParams) query() (entity.ListQuery, error) {
	if p.SortBy == "" {
		p.SortBy = "uploaded_at"
	}
	if p.SortOrder == "" {
		p.SortOrder = "desc"
	}
	v := common.NewValidator().
		Field("page", p.Page, common.IntRange(1, 1<<30)).
		Field("limit", p.Limit, common.IntRange(1, 100)).
		Field("sort_by", p.SortBy, common.OneOf("uploaded_at", "overall_score", "filename")).
		Field("sort_order", p.SortOrder, common.OneOf("asc", "desc"))
	if err := v.Err(); err != nil {
		return entity.ListQuery{}, err
	}
	st, err := parseStatus(p.Status)
	if err != nil {
		return entity.ListQuery{}, err
	}
	return entity.ListQuery{
		Page:      p.Page,
		Limit:     p.Limit,
		Status:    st,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	}, nil
}
