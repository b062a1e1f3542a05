package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// Printer 回傳帶千分位的輸出器
func Printer() *message.Printer {
	return message.NewPrinter(lang)
}

// FormatDuration 輸出耗時與每秒操作數
func FormatDuration(d time.Duration, ops int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	opsPerSec := int(float64(ops) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\nops : %d ops/sec\n", sec, opsPerSec)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\nops : %d ops/sec\n", m, s, opsPerSec)
	}
	return p.Sprintf("used: %dh:%dm:%ds\nops : %d ops/sec\n", h, m, s, opsPerSec)
}

// FormatTable 以 keys 的順序輸出兩欄表格，欄寬以顯示寬度 (含全形字) 計算
func FormatTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for _, k := range keys {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(msg[k]); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

// Table 以表格輸出檢定結果
func (f *FitReport) Table(title string) string {
	p := message.NewPrinter(lang)
	keys := []string{"Draws", "Chi-Square", "DF", "P-Value", "Unexpected"}
	msg := map[string]string{
		"Draws":      p.Sprintf("%d", f.Draws),
		"Chi-Square": p.Sprintf("%.3f", f.ChiSquare),
		"DF":         p.Sprintf("%d", f.DF),
		"P-Value":    p.Sprintf("%.4f", f.PValue),
		"Unexpected": p.Sprintf("%d", f.Unexpected),
	}
	for _, b := range f.Bins {
		k := "key " + b.Key
		keys = append(keys, k)
		msg[k] = p.Sprintf("w=%d obs=%d exp=%.1f %s", b.Weight, b.Observed, b.Expected, fmtHatCIpct01(b.Share.Hat, b.Share.CI))
	}
	return FormatTable(title, keys, msg)
}

// Fields 回傳耗時分布的表格欄位
func (l LatencyStat) Fields() ([]string, map[string]string) {
	keys := []string{"Samples", "Mean", "P50", "P90", "P99"}
	msg := map[string]string{
		"Samples": Printer().Sprintf("%d", l.Samples),
		"Mean":    fmtNanosCI(l.Mean),
		"P50":     fmtNanosCI(l.P50),
		"P90":     fmtNanosCI(l.P90),
		"P99":     fmtNanosCI(l.P99),
	}
	return keys, msg
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtNanosCI(ps PointStat) string {
	return fmt.Sprintf("%s [%s, %s]", time.Duration(ps.Hat), time.Duration(ps.CI.Lo), time.Duration(ps.CI.Hi))
}
