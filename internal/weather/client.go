// Package weather is a small OpenWeatherMap client used by the MCP tools.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

var (
	ErrMissingAPIKey    = errors.New("weather API key is not configured")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrRateLimited      = errors.New("API rate limit exceeded, try again later")
	ErrInvalidDays      = errors.New("forecast days must be between 1 and 5")
	ErrEmptyLocation    = errors.New("location is required")
)

// Client talks to the OpenWeatherMap 2.5 API. Units are always metric.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. An empty baseURL uses DefaultBaseURL.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Current is the present conditions at a location.
type Current struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
	Visibility  int     `json:"visibility,omitempty"` // meters
}

// Day summarises one calendar day of the 3-hourly forecast.
type Day struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"temperature_min"`
	TempMax     float64 `json:"temperature_max"`
	Description string  `json:"description"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Forecast is a per-day forecast for a location.
type Forecast struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Days    []Day  `json:"days"`
}

type mainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure"`
}

type conditions []struct {
	Description string `json:"description"`
}

func (c conditions) first() string {
	if len(c) == 0 {
		return ""
	}
	return c[0].Description
}

type wind struct {
	Speed float64 `json:"speed"`
}

type currentResponse struct {
	Name       string     `json:"name"`
	Main       mainBlock  `json:"main"`
	Weather    conditions `json:"weather"`
	Wind       wind       `json:"wind"`
	Visibility int        `json:"visibility"`
	Sys        struct {
		Country string `json:"country"`
	} `json:"sys"`
}

type forecastResponse struct {
	List []struct {
		DtTxt   string     `json:"dt_txt"`
		Main    mainBlock  `json:"main"`
		Weather conditions `json:"weather"`
		Wind    wind       `json:"wind"`
	} `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

// Current fetches the current weather for a location such as "London,UK".
func (c *Client) Current(ctx context.Context, location string) (*Current, error) {
	var resp currentResponse
	if err := c.get(ctx, "/weather", location, &resp); err != nil {
		return nil, err
	}
	return &Current{
		City:        resp.Name,
		Country:     resp.Sys.Country,
		Temperature: resp.Main.Temp,
		FeelsLike:   resp.Main.FeelsLike,
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
		Description: resp.Weather.first(),
		WindSpeed:   resp.Wind.Speed,
		Visibility:  resp.Visibility,
	}, nil
}

// Forecast fetches up to days (1..5) days of forecast, grouping the API's
// 3-hourly entries by date.
func (c *Client) Forecast(ctx context.Context, location string, days int) (*Forecast, error) {
	if days < 1 || days > 5 {
		return nil, ErrInvalidDays
	}
	var resp forecastResponse
	if err := c.get(ctx, "/forecast", location, &resp); err != nil {
		return nil, err
	}

	type acc struct {
		min, max  float64
		humidity  int
		wind      float64
		n         int
		descCount map[string]int
		descOrder []string
	}
	var order []string
	byDate := make(map[string]*acc)
	for _, e := range resp.List {
		date, _, _ := strings.Cut(e.DtTxt, " ")
		a, ok := byDate[date]
		if !ok {
			a = &acc{min: e.Main.Temp, max: e.Main.Temp, descCount: map[string]int{}}
			byDate[date] = a
			order = append(order, date)
		}
		a.min = min(a.min, e.Main.Temp)
		a.max = max(a.max, e.Main.Temp)
		a.humidity += e.Main.Humidity
		a.wind += e.Wind.Speed
		a.n++
		if d := e.Weather.first(); d != "" {
			if a.descCount[d] == 0 {
				a.descOrder = append(a.descOrder, d)
			}
			a.descCount[d]++
		}
	}

	out := &Forecast{City: resp.City.Name, Country: resp.City.Country}
	for _, date := range order {
		if len(out.Days) == days {
			break
		}
		a := byDate[date]
		// Most frequent description; earliest wins ties.
		var desc string
		for _, d := range a.descOrder {
			if a.descCount[d] > a.descCount[desc] {
				desc = d
			}
		}
		out.Days = append(out.Days, Day{
			Date:        date,
			TempMin:     a.min,
			TempMax:     a.max,
			Description: desc,
			Humidity:    a.humidity / a.n,
			WindSpeed:   a.wind / float64(a.n),
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path, location string, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return ErrEmptyLocation
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case http.StatusNotFound:
		return ErrLocationNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding weather response: %w", err)
	}
	return nil
}
