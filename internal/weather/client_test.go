package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const currentJSON = `{
	"name": "London",
	"sys": {"country": "GB"},
	"main": {"temp": 12.34, "feels_like": 10.02, "humidity": 81, "pressure": 1012},
	"weather": [{"description": "light rain"}],
	"wind": {"speed": 4.1},
	"visibility": 9000
}`

const forecastJSON = `{
	"city": {"name": "Tokyo", "country": "JP"},
	"list": [
		{"dt_txt": "2026-10-14 09:00:00", "main": {"temp": 18, "humidity": 60}, "weather": [{"description": "clear sky"}], "wind": {"speed": 2}},
		{"dt_txt": "2026-10-14 12:00:00", "main": {"temp": 22, "humidity": 50}, "weather": [{"description": "few clouds"}], "wind": {"speed": 4}},
		{"dt_txt": "2026-10-14 15:00:00", "main": {"temp": 20, "humidity": 55}, "weather": [{"description": "few clouds"}], "wind": {"speed": 3}},
		{"dt_txt": "2026-10-15 00:00:00", "main": {"temp": 15, "humidity": 70}, "weather": [{"description": "rain"}], "wind": {"speed": 5}},
		{"dt_txt": "2026-10-16 00:00:00", "main": {"temp": 14, "humidity": 75}, "weather": [{"description": "mist"}], "wind": {"speed": 1}}
	]
}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "key" || q.Get("units") != "metric" || q.Get("q") == "" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCurrent(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, currentJSON)
	c := New(srv.URL, "key")

	got, err := c.Current(context.Background(), "London,UK")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	want := &Current{
		City: "London", Country: "GB", Temperature: 12.34, FeelsLike: 10.02,
		Humidity: 81, Pressure: 1012, Description: "light rain", WindSpeed: 4.1, Visibility: 9000,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Current mismatch (-want +got):\n%s", diff)
	}

	text := FormatCurrent(got)
	for _, s := range []string{"Current weather in London, GB", "12.3°C (feels like 10.0°C)", "Light Rain", "81%", "1012 hPa", "9.0 km"} {
		if !strings.Contains(text, s) {
			t.Errorf("FormatCurrent missing %q:\n%s", s, text)
		}
	}
}

func TestForecast_GroupsByDay(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, forecastJSON)
	c := New(srv.URL, "key")

	got, err := c.Forecast(context.Background(), "Tokyo,JP", 2)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	want := &Forecast{
		City: "Tokyo", Country: "JP",
		Days: []Day{
			{Date: "2026-10-14", TempMin: 18, TempMax: 22, Description: "few clouds", Humidity: 55, WindSpeed: 3},
			{Date: "2026-10-15", TempMin: 15, TempMax: 15, Description: "rain", Humidity: 70, WindSpeed: 5},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Forecast mismatch (-want +got):\n%s", diff)
	}

	text := FormatForecast(got)
	if !strings.HasPrefix(text, "2-day weather forecast for Tokyo, JP") {
		t.Errorf("unexpected header:\n%s", text)
	}
	if !strings.Contains(text, "18.0°C - 22.0°C") || !strings.Contains(text, "Few Clouds") {
		t.Errorf("unexpected body:\n%s", text)
	}
}

func TestForecast_InvalidDays(t *testing.T) {
	c := New("http://unused.invalid", "key")
	for _, days := range []int{0, 6, -1} {
		if _, err := c.Forecast(context.Background(), "Paris", days); !errors.Is(err, ErrInvalidDays) {
			t.Errorf("days=%d: error = %v, want ErrInvalidDays", days, err)
		}
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidAPIKey},
		{http.StatusNotFound, ErrLocationNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newTestServer(t, tt.status, `{"message":"nope"}`)
			_, err := New(srv.URL, "key").Current(context.Background(), "Nowhere")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	srv := newTestServer(t, http.StatusInternalServerError, "boom")
	_, err := New(srv.URL, "key").Current(context.Background(), "Nowhere")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %v, want status 500", err)
	}
}

func TestMissingKeyAndLocation(t *testing.T) {
	if _, err := New("", "").Current(context.Background(), "London"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := New("", "key").Current(context.Background(), "  "); !errors.Is(err, ErrEmptyLocation) {
		t.Errorf("error = %v, want ErrEmptyLocation", err)
	}
}
