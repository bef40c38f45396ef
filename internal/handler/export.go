package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fortunestack/capacity-planner/internal/model"
)

const errNoReport = "No report available. Fetch /api/report first."

func (h *Handler) cachedReport(regionParam string) (*model.Report, bool) {
	cached, ok := h.cache.Get("report:" + regionParam)
	if !ok {
		return nil, false
	}
	report, ok := cached.(*model.Report)
	return report, ok
}

func (h *Handler) ExportJSON(c *gin.Context) {
	report, ok := h.cachedReport(c.Query("regions"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoReport})
		return
	}

	filename := fmt.Sprintf("capacity-report-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ExportHTML(c *gin.Context) {
	report, ok := h.cachedReport(c.Query("regions"))
	if !ok {
		c.String(http.StatusBadRequest, errNoReport)
		return
	}

	html := generateHTMLReport(report)
	filename := fmt.Sprintf("capacity-report-%s.html", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "text/html")
	c.String(http.StatusOK, html)
}

func generateHTMLReport(report *model.Report) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Region Capacity Report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 20px; }
        h1, h2 { color: #232f3e; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #232f3e; color: white; }
        tr:nth-child(even) { background-color: #f2f2f2; }
        tr:hover { background-color: #ddd; }
        .timestamp { color: #666; font-size: 0.9em; }
        .no { color: #b00020; }
        .yes { color: #1b7a2f; }
    </style>
</head>
<body>
    <h1>Region Capacity Report</h1>
    <p class="timestamp">Checked: ` + report.CheckedAt.Format("2006-01-02 15:04:05") + `</p>`)

	writeSection(&b, "Feasible Regions", report.Feasible)
	writeSection(&b, "Infeasible / Unknown Regions", report.Diagnostics)

	b.WriteString(`
</body>
</html>`)
	return b.String()
}

func writeSection(b *strings.Builder, title string, results []model.FeasibilityResult) {
	fmt.Fprintf(b, `
    <h2>%s (%d)</h2>
    <table>
        <thead>
            <tr>
                <th>Region</th>
                <th>Service</th>
                <th>Usage/Limit</th>
                <th>Required</th>
                <th>Headroom</th>
            </tr>
        </thead>
        <tbody>`, title, len(results))

	for _, result := range results {
		for _, res := range result.Resources {
			usage := fmt.Sprintf("%d/%d", res.Usage, res.Limit)
			headroom := fmt.Sprintf("%d", res.Headroom)
			class := "yes"
			if !res.Known {
				usage = "unknown"
				headroom = "unknown"
				class = "no"
			} else if res.Headroom < 0 {
				class = "no"
			}
			fmt.Fprintf(b, `
            <tr>
                <td>%s</td>
                <td>%s</td>
                <td>%s</td>
                <td>%d</td>
                <td class="%s">%s</td>
            </tr>`, result.Region, res.Service, usage, res.Required, class, headroom)
		}
	}

	b.WriteString(`
        </tbody>
    </table>`)
}
