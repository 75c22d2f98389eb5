// Package doctor probes the data-source chain end to end so a user can
// tell a network problem from a strategy problem before the evening run.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"StockPicker/internal/datasource"
	"StockPicker/internal/errmsg"
	"StockPicker/internal/model"
)

// Check is one diagnostic probe result.
type Check struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
	Error    string `json:"error,omitempty"`
	ErrorCN  string `json:"error_cn,omitempty"`
}

// Report is the full diagnostic run.
type Report struct {
	Timestamp string  `json:"timestamp"`
	Platform  string  `json:"platform"`
	ProxyEnv  string  `json:"proxy_env,omitempty"`
	AllOK     bool    `json:"all_ok"`
	Checks    []Check `json:"checks"`
}

const probeTimeout = 10 * time.Second

var requiredHosts = []string{
	"82.push2.eastmoney.com",
	"push2his.eastmoney.com",
}

var optionalHosts = []string{
	"web.ifzq.gtimg.cn",
}

// Run executes every probe against the given data source. A failed
// optional check degrades the report but does not flip AllOK.
func Run(ctx context.Context, ds datasource.MarketDataSource) Report {
	rep := Report{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		ProxyEnv:  proxyEnv(),
		AllOK:     true,
	}

	for _, host := range requiredHosts {
		rep.add(dnsCheck(host, true))
	}
	for _, host := range optionalHosts {
		rep.add(dnsCheck(host, false))
	}
	rep.add(httpCheck(ctx, "https://82.push2.eastmoney.com/api/qt/clist/get", true))
	rep.add(tradeDateCheck(ctx, ds))
	rep.add(stockListCheck(ctx, ds))
	return rep
}

func (r *Report) add(c Check) {
	if !c.OK && c.Error != "" {
		c.ErrorCN = errmsg.Friendly(fmt.Errorf("%s", c.Error))
	}
	if !c.OK && c.Required {
		r.AllOK = false
	}
	r.Checks = append(r.Checks, c)
}

func dnsCheck(host string, required bool) Check {
	c := Check{Name: "dns " + host, Required: required}
	ips, err := net.LookupHost(host)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	c.OK = true
	if len(ips) > 0 {
		c.Detail = "ip=" + ips[0]
	}
	return c
}

func httpCheck(ctx context.Context, rawURL string, required bool) Check {
	c := Check{Name: "http " + rawURL, Required: required}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	defer resp.Body.Close()
	c.OK = true
	c.Detail = fmt.Sprintf("status=%d", resp.StatusCode)
	return c
}

func tradeDateCheck(ctx context.Context, ds datasource.MarketDataSource) Check {
	c := Check{Name: "trade_dates", Required: true}
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	dates, err := ds.GetTradeDates(ctx, start, end)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	if len(dates) == 0 {
		c.Error = "empty trade calendar"
		return c
	}
	c.OK = true
	c.Detail = fmt.Sprintf("rows=%d latest=%s", len(dates), model.FormatDay(dates[len(dates)-1]))
	return c
}

func stockListCheck(ctx context.Context, ds datasource.MarketDataSource) Check {
	c := Check{Name: "stock_list", Required: false}
	stocks, err := ds.GetStockList(ctx)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	if len(stocks) == 0 {
		c.Error = "empty stock list"
		return c
	}
	sample := make([]string, 0, 3)
	for i := 0; i < len(stocks) && i < 3; i++ {
		sample = append(sample, stocks[i].Symbol+" "+stocks[i].Name)
	}
	c.OK = true
	c.Detail = fmt.Sprintf("rows=%d sample=[%s]", len(stocks), strings.Join(sample, ", "))
	return c
}

// Format renders the report the way it is printed to a terminal.
func Format(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "时间: %s\n", rep.Timestamp)
	fmt.Fprintf(&b, "系统: %s\n", rep.Platform)
	if rep.ProxyEnv != "" {
		fmt.Fprintf(&b, "代理环境变量: %s\n", rep.ProxyEnv)
	} else {
		b.WriteString("代理环境变量: 未检测到\n")
	}
	status := "FAIL"
	if rep.AllOK {
		status = "PASS"
	}
	fmt.Fprintf(&b, "总体状态: %s\n", status)
	if rep.AllOK {
		b.WriteString("结论: 主链路可用，可直接运行 recommend；可选检查失败不会阻断推荐。\n")
	}
	b.WriteString("\n")
	for i, c := range rep.Checks {
		st := "PASS"
		if !c.OK {
			st = "WARN"
			if c.Required {
				st = "FAIL"
			}
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, st, c.Name)
		if c.Detail != "" {
			fmt.Fprintf(&b, "   %s\n", c.Detail)
		}
		if c.Error != "" {
			msg := c.Error
			if c.ErrorCN != "" {
				msg = c.ErrorCN
			}
			fmt.Fprintf(&b, "   error: %s\n", msg)
		}
	}
	return b.String()
}

func proxyEnv() string {
	parts := make([]string, 0, 2)
	for _, key := range []string{"HTTPS_PROXY", "HTTP_PROXY", "https_proxy", "http_proxy"} {
		if v := os.Getenv(key); v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
