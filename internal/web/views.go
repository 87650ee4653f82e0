package web

// views.go holds the small HTML fragments served to HTMX clients. They are
// written as templ components by hand, so no templ generate step is needed.

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissable error box.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="alert-code">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// ImportProgress renders the import step indicator, with a progress bar
// while importing and the counts once finished.
func ImportProgress(id string, st importer.State) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="import-%s" class="import-status" data-stage="%s">`,
			templ.EscapeString(id), templ.EscapeString(string(st.Stage))); err != nil {
			return err
		}

		switch st.Stage {
		case importer.StageImporting:
			pct := st.Progress.Percent()
			if _, err := fmt.Fprintf(w,
				`<progress max="100" value="%d"></progress><span>%d / %d rows</span>`,
				pct, st.Progress.Processed, st.Progress.Total); err != nil {
				return err
			}
		case importer.StageResults:
			if r := st.Result; r != nil {
				label := "Import complete"
				if r.Cancelled {
					label = "Import cancelled"
				}
				if _, err := fmt.Fprintf(w,
					`<p>%s: %d imported, %d failed, %d skipped</p>`,
					label, r.Success, r.Failed, r.Skipped); err != nil {
					return err
				}
			}
		default:
			if st.Error != "" {
				if _, err := fmt.Fprintf(w, `<p class="import-error">%s</p>`, templ.EscapeString(st.Error)); err != nil {
					return err
				}
			}
		}

		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
