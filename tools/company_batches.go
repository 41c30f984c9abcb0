// Paginated company query tool with sequential cursor enforcement.
//
// Information Hiding:
// - Pagination protocol enforcement hidden behind the tool
// - Violation reporting format internalized
// - Data source access details hidden

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/guard"
	"github.com/richinex/themescout/model"
	"github.com/richinex/themescout/source"
)

// CompanyBatchLimitCap bounds how many companies one call may request.
const CompanyBatchLimitCap = 500

// CompanyBatchTool serves companies page by page. A cursor guard forces
// the caller to walk offsets 0, pageSize, 2*pageSize... with no gaps and
// no repeats. Violations come back as a structurally valid batch with the
// error field set and zero records, so the calling agent can read the
// message and issue a corrected request.
type CompanyBatchTool struct {
	BaseTool
	pager    source.CompanyPager
	cursor   *guard.Cursor
	pageSize int
	logger   zerolog.Logger
}

// NewCompanyBatchTool creates the tool bound to one run's cursor guard.
func NewCompanyBatchTool(pager source.CompanyPager, cursor *guard.Cursor, pageSize int, logger zerolog.Logger) *CompanyBatchTool {
	return &CompanyBatchTool{
		pager:    pager,
		cursor:   cursor,
		pageSize: pageSize,
		logger:   logger.With().Str("tool", "get_company_batch").Logger(),
	}
}

// Metadata returns tool metadata.
func (t *CompanyBatchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "get_company_batch",
		Description: fmt.Sprintf(
			"Fetch the next batch of companies to evaluate. Batches MUST be requested sequentially: "+
				"start at offset 0 and advance by %d each call until has_more is false.", t.pageSize),
		Parameters: []ToolParameter{
			{Name: "offset", ParamType: "integer", Description: "Row offset of the batch; must equal the next expected offset", Required: true},
			{Name: "limit", ParamType: "integer", Description: fmt.Sprintf("Batch size (default %d, max %d)", t.pageSize, CompanyBatchLimitCap), Required: false},
		},
	}
}

type companyBatchArgs struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Execute validates the offset against the cursor and serves the page.
func (t *CompanyBatchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req companyBatchArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = t.pageSize
	}
	if limit > CompanyBatchLimitCap {
		limit = CompanyBatchLimitCap
	}

	if err := t.cursor.Check(req.Offset); err != nil {
		t.logger.Warn().Int("offset", req.Offset).Err(err).Msg("pagination violation")
		return marshalBatch(model.CompanyBatch{
			Error:     err.Error(),
			Companies: []model.Company{},
			Offset:    req.Offset,
			Limit:     limit,
		})
	}

	// The cursor advances only once the page is in hand. A transient fetch
	// failure leaves it untouched so the executor's retry can re-request
	// the same offset.
	companies, total, err := t.pager.FetchPage(ctx, req.Offset, limit)
	if err != nil {
		return FailureResultf("company fetch failed: %v", err), nil
	}

	if err := t.cursor.Admit(req.Offset); err != nil {
		return FailureResultf("cursor advance failed: %v", err), nil
	}

	hasMore := req.Offset+len(companies) < total
	if !hasMore {
		t.cursor.MarkComplete()
	}

	t.logger.Debug().
		Int("offset", req.Offset).
		Int("returned", len(companies)).
		Int("total", total).
		Bool("has_more", hasMore).
		Msg("served company batch")

	return marshalBatch(model.CompanyBatch{
		Companies:  companies,
		TotalCount: total,
		Offset:     req.Offset,
		Limit:      limit,
		Returned:   len(companies),
		HasMore:    hasMore,
	})
}

func marshalBatch(batch model.CompanyBatch) (ToolResult, error) {
	if batch.Companies == nil {
		batch.Companies = []model.Company{}
	}
	out, err := json.Marshal(batch)
	if err != nil {
		return FailureResultf("marshal batch: %v", err), nil
	}
	return SuccessResult(string(out)), nil
}
