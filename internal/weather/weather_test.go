package weather

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phinze/switchdeck/internal/config"
)

func minutes(rates ...float64) []Minute {
	out := make([]Minute, len(rates))
	for i, r := range rates {
		out[i] = Minute{Dt: int64(i * 60), Precipitation: r}
	}
	return out
}

func TestAnalyzePrecipitation(t *testing.T) {
	tests := []struct {
		name      string
		minutely  []Minute
		condition string
		want      PrecipForecast
	}{
		{"no data", nil, "Rain", PrecipForecast{}},
		{"dry", minutes(0, 0, 0), "Clear", PrecipForecast{Type: "Rain"}},
		{"starts", minutes(0, 0, 0.5, 1), "Rain",
			PrecipForecast{StartsIn: 2, Type: "Rain", Description: "Rain in 2 min"}},
		{"ends", minutes(1, 0.3, 0.05), "Snow",
			PrecipForecast{Active: true, EndsIn: 2, Type: "Snow", Description: "Snow ending in 2 min"}},
		{"steady", minutes(1, 1, 1), "Thunderstorm",
			PrecipForecast{Active: true, Type: "Storm", Description: "Storm for 60+ min"}},
		{"threshold", minutes(0.1), "Drizzle",
			PrecipForecast{Active: true, Type: "Drizzle", Description: "Drizzle for 60+ min"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := analyzePrecipitation(tt.minutely, tt.condition); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

const sampleResponse = `{
  "current": {"temp": 61.4, "feels_like": 59.9, "humidity": 80, "wind_speed": 4.2,
    "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}]},
  "minutely": [{"dt": 0, "precipitation": 0.4}, {"dt": 60, "precipitation": 0}],
  "daily": [{"temp": {"min": 50.1, "max": 64.8},
    "weather": [{"id": 500, "main": "Rain", "description": "rain", "icon": "10d"}]}]
}`

func TestClientFetch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := &Client{APIKey: "k", Lat: 45.5, Lon: -122.6, BaseURL: srv.URL}
	r, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(query, "appid=k") || !strings.Contains(query, "units=imperial") {
		t.Fatalf("query = %q", query)
	}
	if r.Current.Temp != 61.4 || r.Current.Icon != "10d" || r.Current.Description != "light rain" {
		t.Fatalf("current = %+v", r.Current)
	}
	if r.Daily.TempMax != 64.8 || r.Daily.Condition != "Rain" {
		t.Fatalf("daily = %+v", r.Daily)
	}
	if !r.Precip.Active || r.Precip.EndsIn != 1 {
		t.Fatalf("precip = %+v", r.Precip)
	}
	if r.Fetched.IsZero() {
		t.Fatal("Fetched not set")
	}
}

func TestClientFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &Client{APIKey: "bad", BaseURL: srv.URL}
	if _, err := c.Fetch(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v, want 401", err)
	}
}

func TestClientFromConfig(t *testing.T) {
	cfg := &config.Config{Weather: config.WeatherConfig{Lat: "45.5", Lon: "-122.6", APIKey: "k"}}
	c, err := ClientFromConfig(cfg)
	if err != nil {
		t.Fatalf("ClientFromConfig: %v", err)
	}
	if c.Lat != 45.5 || c.Lon != -122.6 {
		t.Fatalf("client = %+v", c)
	}

	for _, w := range []config.WeatherConfig{
		{Lat: "1", Lon: "2"},
		{APIKey: "k"},
		{APIKey: "k", Lat: "north", Lon: "2"},
	} {
		if _, err := ClientFromConfig(&config.Config{Weather: w}); err == nil {
			t.Fatalf("ClientFromConfig(%+v) succeeded", w)
		}
	}
}

func TestPanelBitmap(t *testing.T) {
	for _, size := range []image.Rectangle{image.Rect(0, 0, 800, 100), image.Rect(0, 0, 800, 480)} {
		p, err := NewPanel(&Client{}, size)
		if err != nil {
			t.Fatalf("NewPanel(%v): %v", size, err)
		}

		loading, err := p.Bitmap()
		if err != nil {
			t.Fatalf("Bitmap: %v", err)
		}
		if loading.Bounds() != size {
			t.Fatalf("bounds = %v, want %v", loading.Bounds(), size)
		}
		again, _ := p.Bitmap()
		if again != loading {
			t.Fatal("unchanged report was re-rendered")
		}

		p.Update(Report{
			Current: CurrentWeather{Temp: 70, FeelsLike: 68, Description: "clear sky", Icon: "01d"},
			Daily:   DailyForecast{TempMin: 55, TempMax: 75},
			Precip:  PrecipForecast{Type: "Rain", StartsIn: 12, Description: "Rain in 12 min"},
			Fetched: time.Now(),
		})
		frame, _ := p.Bitmap()
		if frame == loading {
			t.Fatal("updated report did not produce a new frame")
		}
		if frame.Bounds() != size {
			t.Fatalf("bounds = %v, want %v", frame.Bounds(), size)
		}
	}
}

func TestWeatherIcon(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"01d", iconSun},
		{"01n", iconMoon},
		{"02n", iconCloudMoon},
		{"04d", iconCloud},
		{"10n", iconCloudRain},
		{"11d", iconCloudLightning},
		{"13d", iconCloudSnow},
		{"50d", iconCloudFog},
		{"", iconCloud},
	}
	for _, tt := range tests {
		got, _ := weatherIcon(tt.code)
		if !strings.Contains(got, tt.want) {
			t.Fatalf("weatherIcon(%q) picked the wrong shape", tt.code)
		}
	}
}
