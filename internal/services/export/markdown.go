package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/marketlens/internal/models"
)

// Section headings of the exported report
const (
	headingSummary     = "分析摘要"
	headingInsights    = "核心洞察"
	headingRecommend   = "战略建议"
	headingCompetitors = "竞品动态"
	headingTrends      = "未来趋势"
	headingEvents      = "地缘政治事件"
	headingPrices      = "价格表"
	headingCustomers   = "客户策略"
	footerLabel        = "报告生成日期"
	filenamePrefix     = "市场分析报告_"
)

type frontMatter struct {
	Title       string   `yaml:"title"`
	Variant     string   `yaml:"variant"`
	Model       string   `yaml:"model,omitempty"`
	GeneratedAt string   `yaml:"generated_at"`
	SourceFiles []string `yaml:"source_files,omitempty"`
	Customers   []string `yaml:"customers,omitempty"`
}

// Filename returns the download name for a report generated at t
func Filename(t time.Time, ext string) string {
	return filenamePrefix + t.Format("2006-01-02") + "." + ext
}

// Markdown renders a report as Markdown with a YAML front matter block.
// Result fields are interpolated literally.
func Markdown(report *models.AnalysisReport) (string, error) {
	meta, err := yaml.Marshal(frontMatter{
		Title:       report.Result.Title,
		Variant:     string(report.Variant),
		Model:       report.Model,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		SourceFiles: report.SourceFiles,
		Customers:   report.Customers,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal front matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(meta)
	sb.WriteString("---\n\n")
	sb.WriteString(body(report))
	return sb.String(), nil
}

// body is the report without front matter
func body(report *models.AnalysisReport) string {
	r := report.Result

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)

	fmt.Fprintf(&sb, "## %s\n%s\n\n", headingSummary, r.Summary)
	writeBullets(&sb, headingInsights, r.KeyInsights)
	writeBullets(&sb, headingRecommend, r.Recommendations)
	fmt.Fprintf(&sb, "## %s\n%s\n\n", headingCompetitors, r.CompetitorAnalysis)
	writeBullets(&sb, headingTrends, r.Trends)

	if len(r.GeopoliticalEvents) > 0 {
		rows := make([][]string, 0, len(r.GeopoliticalEvents))
		for _, e := range r.GeopoliticalEvents {
			rows = append(rows, []string{e.Event, e.Region, e.Impact, string(e.RiskLevel)})
		}
		writeTable(&sb, headingEvents, []string{"事件", "地区", "影响", "风险等级"}, rows)
	}
	if len(r.PriceTable) > 0 {
		rows := make([][]string, 0, len(r.PriceTable))
		for _, p := range r.PriceTable {
			rows = append(rows, []string{p.Product, p.Price, p.Unit, p.Change, p.Outlook})
		}
		writeTable(&sb, headingPrices, []string{"产品", "价格", "单位", "变化", "展望"}, rows)
	}
	if len(r.CustomerStrategies) > 0 {
		fmt.Fprintf(&sb, "## %s\n\n", headingCustomers)
		for _, c := range r.CustomerStrategies {
			fmt.Fprintf(&sb, "### %s\n\n**策略**: %s\n\n**机会**: %s\n\n", c.Name, c.Strategy, c.Opportunity)
		}
	}

	fmt.Fprintf(&sb, "---\n*%s: %s*\n", footerLabel, report.GeneratedAt.Format("2006-01-02 15:04:05"))
	return sb.String()
}

func writeBullets(sb *strings.Builder, heading string, items []string) {
	fmt.Fprintf(sb, "## %s\n", heading)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

func writeTable(sb *strings.Builder, heading string, header []string, rows [][]string) {
	fmt.Fprintf(sb, "## %s\n\n", heading)
	writeRow(sb, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sb, sep)
	for _, row := range rows {
		writeRow(sb, row)
	}
	sb.WriteString("\n")
}

var cellEscaper = strings.NewReplacer("|", "\\|", "\r\n", " ", "\n", " ")

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, cell := range cells {
		sb.WriteString(" ")
		sb.WriteString(cellEscaper.Replace(cell))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
