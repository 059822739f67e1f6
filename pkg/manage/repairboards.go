package manage

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/repair"
)

type repairRow struct {
	Label string
	Count int64
}

func repairRows(results []repair.Result) []repairRow {
	rows := make([]repairRow, len(results))
	for r, result := range results {
		rows[r] = repairRow{Label: result.Label, Count: int64(result.Count)}
	}
	return rows
}

func fixedRows(fixed map[string]int64) []repairRow {
	var rows []repairRow
	for _, check := range repair.Checks {
		if count, ok := fixed[check.ID]; ok {
			rows = append(rows, repairRow{Label: check.Label, Count: count})
		}
	}
	return rows
}

func renderRepair(request *http.Request, staff *fasql.Staff, sa string, results []repair.Result, fixed map[string]int64, notice string) (any, error) {
	data, err := listDataBase(request, staff, "repairboards", sa)
	if err != nil {
		return nil, err
	}
	data["notice"] = notice
	data["results"] = repairRows(results)
	data["fixed"] = fixedRows(fixed)
	data["total"] = repair.TotalErrors(results)
	data["salvageBoard"] = repair.SalvageBoardName
	data["salvageCategory"] = repair.SalvageCategoryName
	return renderTemplate(fatemplates.ManageRepair, data)
}

func repairScanCallback(_ http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	results, err := repair.Scan(request.Context())
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to scan boards")
		return nil, err
	}
	total := repair.TotalErrors(results)
	infoEv.Int("errors", total).Msg("Scanned boards")
	if wantsJSON {
		return map[string]any{"found": results, "total": total}, nil
	}
	return renderRepair(request, staff, "scan", results, nil, "")
}

func repairFixCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	if request.Method != http.MethodPost || request.PostFormValue("fix") == "" {
		return redirect(writer, request, areaURL("repairboards", "scan", nil))
	}
	if err := checkFormToken(writer, request, "repairboards", errEv); err != nil {
		return nil, err
	}
	outcome, err := repair.Run(request.Context(), true)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to repair boards")
		return nil, err
	}
	opts := fasql.ContextOptions(request.Context())
	if err = fasql.LogAction(opts, fasql.AdminLog, "repair_boards", staff.ID, fautil.GetRealIP(request), map[string]any{
		"found": repair.TotalErrors(outcome.Found),
	}); err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	remaining := outcome.Remaining
	if outcome.Fixed == nil {
		// nothing needed fixing
		remaining = outcome.Found
	}
	infoEv.Int("found", repair.TotalErrors(outcome.Found)).
		Int("remaining", repair.TotalErrors(remaining)).
		Msg("Repaired boards")
	if wantsJSON {
		return outcome, nil
	}
	notice := "The errors were fixed"
	if outcome.Fixed == nil {
		notice = "No errors were found"
	}
	return renderRepair(request, staff, "fix", remaining, outcome.Fixed, notice)
}

func registerRepairBoardsArea() {
	registerArea(&area{
		ID:        "repairboards",
		Title:     "Find and repair errors",
		DefaultSA: "scan",
		SubActions: []subAction{
			{ID: "scan", Label: "Find errors", Permission: "admin_forum", Handler: repairScanCallback},
			{ID: "fix", Label: "Repair", Permission: "admin_forum", Hidden: true, Handler: repairFixCallback},
		},
	})
}
