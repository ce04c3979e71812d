package notifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"sentinel-signals/internal/calculator"
	"sentinel-signals/internal/model"
)

// Placeholder texts used when no full report can be produced.
const (
	TextNoData     = "无法生成报告: 数据不足"
	TextNoAnalysis = "无法生成报告: 分析结果为空"
	TextNoSignal   = "无法生成报告: 无交易信号"
)

var timeframeNames = map[string]string{
	"1m":  "1分钟",
	"3m":  "3分钟",
	"5m":  "5分钟",
	"15m": "15分钟",
	"30m": "30分钟",
	"1h":  "1小时",
	"2h":  "2小时",
	"4h":  "4小时",
	"6h":  "6小时",
	"8h":  "8小时",
	"12h": "12小时",
	"1d":  "日线",
	"3d":  "3日线",
	"1w":  "周线",
}

// TimeframeName returns the display name of a timeframe.
func TimeframeName(tf string) string {
	if name, ok := timeframeNames[tf]; ok {
		return name
	}
	return tf
}

// FormatPrice renders a price with precision scaled to its magnitude.
func FormatPrice(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "-"
	}
	var places int32
	switch abs := math.Abs(p); {
	case abs >= 1000:
		places = 1
	case abs >= 100:
		places = 2
	case abs >= 10:
		places = 3
	case abs >= 1:
		places = 4
	case abs >= 0.1:
		places = 5
	default:
		places = 6
	}
	return decimal.NewFromFloat(p).StringFixed(places)
}

func formatVolume(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// FormatReport renders the analysis and its signal as a Telegram HTML message.
func FormatReport(a *model.Analysis, sig *model.Signal) string {
	if a == nil {
		return TextNoAnalysis
	}
	if !a.HasPrice || a.Series == nil || a.Series.Len() == 0 {
		return TextNoData
	}
	if sig == nil {
		return TextNoSignal
	}

	var b strings.Builder
	tf := TimeframeName(a.Timeframe)

	b.WriteString(fmt.Sprintf("📊 <b>%s %s行情分析 [%s]</b>\n\n", a.Symbol, tf, trendName(a.Trend.Direction)))

	writeMarketOverview(&b, a, tf)
	writeLevels(&b, a)
	writeTechnical(&b, a)
	writeOtherData(&b, a)
	writeStrength(&b, sig)
	writeTradeAdvice(&b, sig)
	writeRiskManagement(&b, sig)

	b.WriteString(fmt.Sprintf("\n⏰ 更新时间: %s\n", sig.Timestamp.Format("2006-01-02 15:04:05")))
	source := a.Series.Exchange
	if source == "" {
		source = "unknown"
	}
	b.WriteString(fmt.Sprintf("📈 数据来源: %s (%s周期)", source, tf))
	return b.String()
}

func writeMarketOverview(b *strings.Builder, a *model.Analysis, tf string) {
	b.WriteString(fmt.Sprintf("💰 当前价格: $%s\n", FormatPrice(a.LastPrice)))

	if n := a.Series.Len(); n >= 2 {
		prev := a.Series.Bars[n-2].Close
		if prev > 0 {
			change := (a.LastPrice - prev) / prev * 100
			emoji := "➡️"
			if change > 0 {
				emoji = "📈"
			} else if change < 0 {
				emoji = "📉"
			}
			b.WriteString(fmt.Sprintf("%s %s涨跌: %+.2f%%\n", emoji, tf, change))
		}
	}

	rate := a.Series.FundingRate
	b.WriteString(fmt.Sprintf("🔵 资金费率: %.4f%% (%s)\n", rate*100, fundingDescription(a.Sentiment.FundingImpact)))

	s := a.Sentiment
	b.WriteString(fmt.Sprintf("🌡️ 市场情绪: %s (%.0f)\n", sentimentName(s.Overall), s.Score))
	b.WriteString(fmt.Sprintf("• 多空比例: %s\n", formatRatio(s.LongShortRatio)))
	b.WriteString(fmt.Sprintf("• 市场状态: %s\n", stateName(s.State)))
}

func writeLevels(b *strings.Builder, a *model.Analysis) {
	res, sup := a.Levels.Resistance, a.Levels.Support
	if len(res) == 0 && len(sup) == 0 {
		return
	}
	b.WriteString("\n📍 <b>关键价位</b>\n")
	if len(res) > 1 {
		b.WriteString(fmt.Sprintf("• 强阻力位: $%s\n", FormatPrice(res[1])))
	}
	if len(res) > 0 {
		b.WriteString(fmt.Sprintf("• 弱阻力位: $%s\n", FormatPrice(res[0])))
	}
	b.WriteString(fmt.Sprintf("• 当前价格: $%s ⬅️\n", FormatPrice(a.LastPrice)))
	if len(sup) > 0 {
		b.WriteString(fmt.Sprintf("• 弱支撑位: $%s\n", FormatPrice(sup[0])))
	}
	if len(sup) > 1 {
		b.WriteString(fmt.Sprintf("• 强支撑位: $%s\n", FormatPrice(sup[1])))
	}
}

func writeTechnical(b *strings.Builder, a *model.Analysis) {
	ind := a.Indicators
	price := a.LastPrice

	b.WriteString("\n📊 <b>技术分析</b>\n【趋势研判】\n")
	b.WriteString(fmt.Sprintf("• 市场结构: %s (强度 %.0f)\n", a.Structure.Description, a.Structure.Strength))
	if a.Trend.Description != "" {
		b.WriteString(fmt.Sprintf("• 趋势: %s\n", a.Trend.Description))
	}

	ma20, ok20 := ind.Get(model.MAKey(20))
	ma50, ok50 := ind.Get(model.MAKey(50))
	if ok20 && ok50 {
		var verdict string
		switch {
		case price > ma20 && price > ma50:
			verdict = "短期和中期趋势向上"
		case price < ma20 && price < ma50:
			verdict = "短期和中期趋势向下"
		default:
			verdict = "趋势分歧"
		}
		b.WriteString(fmt.Sprintf("• 均线系统: 价格在MA20(%s)%s，MA50(%s)%s，%s\n",
			FormatPrice(ma20), aboveBelow(price, ma20), FormatPrice(ma50), aboveBelow(price, ma50), verdict))
	}

	if upper, middle, lower, ok := ind.Bollinger(); ok {
		var pos string
		switch {
		case price > upper:
			pos = "上轨上方，超买状态"
		case price > middle:
			pos = "中轨上方，偏强运行"
		case price < lower:
			pos = "下轨下方，超卖状态"
		default:
			pos = "中轨下方，偏弱运行"
		}
		width, _ := ind.Get(model.KeyBBWidth)
		b.WriteString(fmt.Sprintf("• 布林通道: %s，通道宽度%.2f%%\n", pos, width*100))
	}

	b.WriteString("【技术指标】\n")
	if rsi, ok := ind.Get(model.KeyRSI); ok {
		b.WriteString(fmt.Sprintf("• RSI: %.1f，%s\n", rsi, rsiComment(rsi)))
	}
	if ind.Has(model.KeyK, model.KeyD) {
		k, d := ind[model.KeyK], ind[model.KeyD]
		comment := "死叉形成，显示下跌动能"
		if k > d {
			comment = "金叉形成，显示上涨动能"
		}
		b.WriteString(fmt.Sprintf("• KDJ: %s (K:%.1f D:%.1f)\n", comment, k, d))
	}
	if _, _, hist, ok := ind.MACD(); ok {
		side := "下跌"
		if hist > 0 {
			side = "上涨"
		}
		if prev, ok := ind.Get(model.KeyMACDHistPrev); ok {
			if math.Abs(hist) > math.Abs(prev) {
				b.WriteString(fmt.Sprintf("• MACD: 柱状图扩大，%s动能增强\n", side))
			} else {
				b.WriteString(fmt.Sprintf("• MACD: 柱状图收窄，%s动能减弱\n", side))
			}
		} else {
			b.WriteString(fmt.Sprintf("• MACD: 柱状图 %.4f，%s动能\n", hist, side))
		}
	}
}

func writeOtherData(b *strings.Builder, a *model.Analysis) {
	s := a.Series
	b.WriteString("\n💫 <b>其他数据</b>\n")
	if bpd := calculator.BarsPerDay(s.Timeframe); bpd > 0 {
		if r, err := calculator.WindowRange(s.Bars, bpd); err == nil {
			b.WriteString(fmt.Sprintf("• 24h最高: $%s\n", FormatPrice(r.High)))
			b.WriteString(fmt.Sprintf("• 24h最低: $%s\n", FormatPrice(r.Low)))
			b.WriteString(fmt.Sprintf("• 24h成交量: %s\n", formatVolume(r.Volume)))
		}
	}
	last := s.Bars[s.Len()-1]
	b.WriteString(fmt.Sprintf("• 最近K线最高: $%s\n", FormatPrice(last.High)))
	b.WriteString(fmt.Sprintf("• 最近K线最低: $%s\n", FormatPrice(last.Low)))
	b.WriteString(fmt.Sprintf("• 最近K线成交量: %s\n", formatVolume(last.Volume)))
	if basis, ok := s.Basis(); ok {
		b.WriteString(fmt.Sprintf("• 期现基差: %+.3f%%\n", basis*100))
	}
	if s.OpenInterest > 0 {
		b.WriteString(fmt.Sprintf("• 持仓量: %s\n", formatVolume(s.OpenInterest)))
	}
	b.WriteString(fmt.Sprintf("• 波动率: %.2f%% (%s)\n", a.Volatility.Current*100, volatilityName(a.Volatility.State)))
}

func writeStrength(b *strings.Builder, sig *model.Signal) {
	stars := min(max(sig.Strength.Stars, 0), 5)
	b.WriteString("\n【信号强度】")
	b.WriteString(strings.Repeat("⭐", stars) + strings.Repeat("☆", 5-stars))
	b.WriteString(fmt.Sprintf(" (%d/5)\n", stars))
	b.WriteString(fmt.Sprintf("• 综合评分: %.1f\n", sig.Score))
	b.WriteString(fmt.Sprintf("• 信号可信度: %s\n", sig.Strength.Reliability))
	b.WriteString(fmt.Sprintf("• 建议交易时机: %s\n", sig.Strength.Timing))
}

func writeTradeAdvice(b *strings.Builder, sig *model.Signal) {
	b.WriteString("\n📈 <b>交易建议</b>\n")
	var action string
	switch sig.Direction {
	case model.DirectionLong:
		action = "做多"
	case model.DirectionShort:
		action = "做空"
	default:
		b.WriteString("【操作方向】观望\n")
		return
	}
	b.WriteString(fmt.Sprintf("【操作方向】%s\n", action))
	b.WriteString(fmt.Sprintf("• 建议%s点位: $%s\n", action, FormatPrice(sig.EntryPrice)))
	b.WriteString(fmt.Sprintf("• 止损位: $%s (%.2f%%)\n", FormatPrice(sig.StopLoss), sig.Risk.RiskPercent))
	b.WriteString(fmt.Sprintf("• 目标位: $%s (%.2f%%)\n", FormatPrice(sig.TargetPrice), sig.Risk.RewardPercent))
}

func writeRiskManagement(b *strings.Builder, sig *model.Signal) {
	if sig.Direction == model.DirectionNeutral {
		return
	}
	r := sig.Risk
	b.WriteString("\n⚠️ <b>风险管理</b>\n")
	b.WriteString(fmt.Sprintf("• 建议杠杆: %d倍 (%s杠杆，%s波动行情)\n",
		r.SuggestedLeverage, grade3(float64(r.SuggestedLeverage), 10, 5), grade3(r.VolatilityPercent, 5, 2)))
	position := "保守"
	if r.PositionSizePercent >= 30 {
		position = "激进"
	} else if r.PositionSizePercent >= 10 {
		position = "适中"
	}
	b.WriteString(fmt.Sprintf("• 建议仓位: %.1f%% (%s仓位)\n", r.PositionSizePercent, position))
	b.WriteString(fmt.Sprintf("• 预期收益率: %.2f%%\n", r.RewardPercent))
	b.WriteString(fmt.Sprintf("• 最大回撤: %.2f%%\n", r.RiskPercent))
	b.WriteString(fmt.Sprintf("• 风险回报比: %.2f (%s)\n", r.RiskRewardRatio, riskRewardGrade(r.RiskRewardRatio)))
	b.WriteString(fmt.Sprintf("• 市场波动性: %.2f%% (%s波动)\n", r.VolatilityPercent, grade3(r.VolatilityPercent, 5, 2)))
}

func riskRewardGrade(rr float64) string {
	switch {
	case rr >= 3:
		return "优秀"
	case rr >= 2:
		return "良好"
	case rr >= 1.5:
		return "一般"
	default:
		return "较差"
	}
}

func grade3(v, high, mid float64) string {
	switch {
	case v >= high:
		return "高"
	case v >= mid:
		return "中"
	default:
		return "低"
	}
}

func rsiComment(rsi float64) string {
	switch {
	case rsi > 70:
		return "处于超买区域，短期可能回调"
	case rsi > 60:
		return "中性偏多，短期偏强"
	case rsi > 40:
		return "中性区域，无明显偏向"
	case rsi > 30:
		return "中性偏空，短期偏弱"
	default:
		return "处于超卖区域，可能反弹"
	}
}

func formatRatio(r float64) string {
	switch {
	case r > 1:
		return fmt.Sprintf("%.1f:1", r)
	case r > 0 && r < 1:
		return fmt.Sprintf("1:%.1f", 1/r)
	default:
		return "1:1"
	}
}

func aboveBelow(price, level float64) string {
	if price > level {
		return "上方"
	}
	return "下方"
}

func trendName(d model.TrendDirection) string {
	switch d {
	case model.TrendUp:
		return "上涨"
	case model.TrendDown:
		return "下跌"
	default:
		return "震荡"
	}
}

func sentimentName(l model.StructureLabel) string {
	switch l {
	case model.StructureBullish:
		return "看涨"
	case model.StructureBearish:
		return "看跌"
	default:
		return "中性"
	}
}

func stateName(s model.MarketState) string {
	switch s {
	case model.StateOverbought:
		return "超买状态"
	case model.StateOversold:
		return "超卖状态"
	default:
		return "正常波动"
	}
}

func fundingDescription(f model.FundingImpact) string {
	switch f {
	case model.FundingLongPay:
		return "正向，多单支付费用"
	case model.FundingShortPay:
		return "负向，空单支付费用"
	default:
		return "中性，费用极低"
	}
}

func volatilityName(s model.VolatilityState) string {
	switch s {
	case model.VolatilityHigh:
		return "高波动"
	case model.VolatilityLow:
		return "低波动"
	default:
		return "正常"
	}
}
