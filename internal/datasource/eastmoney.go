package datasource

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"StockPicker/internal/model"
)

// Eastmoney endpoints.
const (
	emListURL  = "https://82.push2.eastmoney.com/api/qt/clist/get"
	emKLineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	txKLineURL = "https://web.ifzq.gtimg.cn/appstock/app/fqkline/get"
)

// fs selector covering the Shanghai and Shenzhen A-share boards.
const emAShareMarkets = "m:0+t:6,m:0+t:13,m:0+t:80,m:1+t:2,m:1+t:23"

// clist fields: f12 code, f14 name.
const emListFields = "f12,f14"

const emListPageSize = 500

// kline fields2: date, open, close, high, low, volume, amount,
// amplitude, pct change, change, turnover rate.
const emKLineFields = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"

// Browser-like request headers; the quote endpoints reject bare clients.
const (
	emUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	emReferer   = "https://quote.eastmoney.com/"
)

const (
	requestGap    = 200 * time.Millisecond
	requestJitter = 150 // extra milliseconds, randomized
	retryDelay    = 500 * time.Millisecond
	retryDelay429 = 5 * time.Second
)

// EastmoneyClient fetches quotes and K lines from the eastmoney push2
// endpoints, with the Tencent kline endpoint as a fallback for daily
// bars. Requests are throttled with jitter to stay under rate limits.
type EastmoneyClient struct {
	httpClient *http.Client
	retries    int

	mu       sync.Mutex
	lastCall time.Time
}

// NewEastmoneyClient builds a client. proxy may be empty.
func NewEastmoneyClient(timeout time.Duration, retries int, proxy string) *EastmoneyClient {
	transport := &http.Transport{}
	if proxy != "" {
		if u, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if retries < 1 {
		retries = 1
	}
	return &EastmoneyClient{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		retries:    retries,
	}
}

// GetStockList pages through the A-share clist endpoint. The ST flag
// comes from the instrument name.
func (c *EastmoneyClient) GetStockList(ctx context.Context) ([]model.StockInfo, error) {
	var out []model.StockInfo
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pn", strconv.Itoa(page))
		q.Set("pz", strconv.Itoa(emListPageSize))
		q.Set("po", "1")
		q.Set("np", "1")
		q.Set("fltt", "2")
		q.Set("invt", "2")
		q.Set("fid", "f12")
		q.Set("fs", emAShareMarkets)
		q.Set("fields", emListFields)

		body, err := c.get(ctx, emListURL+"?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("fetch stock list page %d: %w", page, err)
		}
		diff := gjson.GetBytes(body, "data.diff")
		if !diff.Exists() {
			break
		}
		added := 0
		diff.ForEach(func(_, item gjson.Result) bool {
			symbol := item.Get("f12").String()
			name := item.Get("f14").String()
			if len(symbol) != 6 {
				return true
			}
			out = append(out, model.StockInfo{
				Symbol: symbol,
				Name:   name,
				IsST:   strings.Contains(strings.ToUpper(name), "ST"),
				Market: guessMarket(symbol),
			})
			added++
			return true
		})
		total := gjson.GetBytes(body, "data.total").Int()
		if added == 0 || int64(len(out)) >= total {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("stock list: %w", ErrNoData)
	}
	return out, nil
}

// GetTradeDates derives the trade calendar from the Shanghai composite
// index daily bars.
func (c *EastmoneyClient) GetTradeDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	bars, err := c.fetchKLines(ctx, "1.000001", start, end)
	if err != nil {
		return nil, fmt.Errorf("trade calendar: %w", err)
	}
	dates := make([]time.Time, 0, len(bars))
	for _, b := range bars {
		dates = append(dates, b.TradeDate)
	}
	return dates, nil
}

// GetDailyBars fetches forward-adjusted daily bars, falling back to
// the Tencent endpoint when eastmoney returns nothing.
func (c *EastmoneyClient) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	bars, emErr := c.fetchKLines(ctx, stockSecID(symbol), start, end)
	if len(bars) > 0 {
		return bars, nil
	}
	bars, txErr := c.fetchTencentKLines(ctx, symbol, start, end)
	if len(bars) > 0 {
		log.Debug().Str("symbol", symbol).Msg("eastmoney kline empty, served from tencent fallback")
		return bars, nil
	}
	if emErr != nil || txErr != nil {
		return nil, fmt.Errorf("fetch daily bars for %s from EM/TX: %w", symbol, ErrNoData)
	}
	return nil, nil
}

// GetIndexCloses fetches an index's daily closes keyed by date.
func (c *EastmoneyClient) GetIndexCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	bars, err := c.fetchKLines(ctx, indexSecID(symbol), start, end)
	if err != nil {
		return nil, fmt.Errorf("index closes for %s: %w", symbol, err)
	}
	out := make(map[time.Time]float64, len(bars))
	for _, b := range bars {
		out[b.TradeDate] = b.Close
	}
	return out, nil
}

func (c *EastmoneyClient) fetchKLines(ctx context.Context, secID string, start, end time.Time) ([]model.DailyBar, error) {
	q := url.Values{}
	q.Set("secid", secID)
	q.Set("fields1", "f1,f2,f3")
	q.Set("fields2", emKLineFields)
	q.Set("klt", "101") // daily
	q.Set("fqt", "1")   // forward adjusted
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))

	body, err := c.get(ctx, emKLineURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var bars []model.DailyBar
	gjson.GetBytes(body, "data.klines").ForEach(func(_, line gjson.Result) bool {
		if bar, ok := parseEMKLine(line.String()); ok {
			bars = append(bars, bar)
		}
		return true
	})
	return bars, nil
}

// parseEMKLine parses one "date,open,close,high,low,volume,..." line.
func parseEMKLine(line string) (model.DailyBar, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return model.DailyBar{}, false
	}
	date, err := model.ParseDay(parts[0])
	if err != nil {
		return model.DailyBar{}, false
	}
	open, err1 := strconv.ParseFloat(parts[1], 64)
	closePx, err2 := strconv.ParseFloat(parts[2], 64)
	high, err3 := strconv.ParseFloat(parts[3], 64)
	low, err4 := strconv.ParseFloat(parts[4], 64)
	volume, err5 := strconv.ParseFloat(parts[5], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return model.DailyBar{}, false
	}
	bar := model.DailyBar{
		TradeDate: date,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
		Volume:    volume,
	}
	if len(parts) >= 11 {
		if turnover, err := strconv.ParseFloat(parts[10], 64); err == nil {
			bar.TurnoverRate = model.MetricOf(turnover)
		}
	}
	return bar, true
}

func (c *EastmoneyClient) fetchTencentKLines(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	txSymbol := tencentSymbol(symbol)
	param := fmt.Sprintf("%s,day,%s,%s,640,qfq", txSymbol, model.FormatDay(start), model.FormatDay(end))
	body, err := c.get(ctx, txKLineURL+"?param="+url.QueryEscape(param))
	if err != nil {
		return nil, err
	}
	lines := gjson.GetBytes(body, "data."+txSymbol+".qfqday")
	if !lines.Exists() {
		lines = gjson.GetBytes(body, "data."+txSymbol+".day")
	}
	var bars []model.DailyBar
	lines.ForEach(func(_, row gjson.Result) bool {
		arr := row.Array()
		if len(arr) < 6 {
			return true
		}
		date, err := model.ParseDay(arr[0].String())
		if err != nil {
			return true
		}
		bars = append(bars, model.DailyBar{
			TradeDate: date,
			Open:      arr[1].Float(),
			Close:     arr[2].Float(),
			High:      arr[3].Float(),
			Low:       arr[4].Float(),
			Volume:    arr[5].Float(),
		})
		return true
	})
	return bars, nil
}

// get throttles, then issues a GET with bounded retries. A 429 backs
// off longer than ordinary failures.
func (c *EastmoneyClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		c.throttle()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", emUserAgent)
		req.Header.Set("Referer", emReferer)
		req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt+1)):
			}
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited: %s", resp.Status)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay429):
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %s", resp.Status)
			continue
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

// throttle enforces a gap plus jitter between outbound requests.
func (c *EastmoneyClient) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	gap := requestGap + time.Duration(rand.Intn(requestJitter))*time.Millisecond
	if wait := gap - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}

// stockSecID maps a 6-digit symbol to the eastmoney secid form:
// market 1 is Shanghai, market 0 is Shenzhen.
func stockSecID(symbol string) string {
	if strings.HasPrefix(symbol, "6") {
		return "1." + symbol
	}
	return "0." + symbol
}

// indexSecID maps an index code. 000xxx index codes live on the
// Shanghai feed, 399xxx on Shenzhen.
func indexSecID(symbol string) string {
	if strings.HasPrefix(symbol, "399") {
		return "0." + symbol
	}
	return "1." + symbol
}

func tencentSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "6") {
		return "sh" + symbol
	}
	return "sz" + symbol
}

func guessMarket(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "688"):
		return "STAR"
	case strings.HasPrefix(symbol, "300"):
		return "GEM"
	case strings.HasPrefix(symbol, "6"):
		return "SH"
	case strings.HasPrefix(symbol, "4"), strings.HasPrefix(symbol, "8"):
		return "BJ"
	default:
		return "SZ"
	}
}
