package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the OpenWeatherMap One Call 3.0 endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

// oneCallResponse represents the OpenWeatherMap One Call 3.0 API response.
type oneCallResponse struct {
	Current struct {
		Temp      float64     `json:"temp"`
		FeelsLike float64     `json:"feels_like"`
		Humidity  int         `json:"humidity"`
		WindSpeed float64     `json:"wind_speed"`
		Weather   []condition `json:"weather"`
	} `json:"current"`
	Minutely []Minute `json:"minutely"`
	Daily    []struct {
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Weather []condition `json:"weather"`
	} `json:"daily"`
}

type condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Minute is one entry of the minutely precipitation forecast.
type Minute struct {
	Dt            int64   `json:"dt"`            // Unix timestamp
	Precipitation float64 `json:"precipitation"` // mm/h
}

// CurrentWeather holds current weather conditions.
type CurrentWeather struct {
	Temp        float64
	FeelsLike   float64
	Humidity    int
	WindSpeed   float64
	Condition   string // Main condition (Clear, Clouds, Rain, etc.)
	Description string // Detailed description
	Icon        string // Icon code (01d, 02n, etc.)
}

// DailyForecast holds today's forecast.
type DailyForecast struct {
	TempMin   float64
	TempMax   float64
	Condition string
	Icon      string
}

// PrecipForecast holds precipitation forecast info.
type PrecipForecast struct {
	Active      bool   // Currently precipitating
	StartsIn    int    // Minutes until precip starts (0 if already active or none expected)
	EndsIn      int    // Minutes until precip ends (0 if not active or won't end in forecast)
	Type        string // "Rain", "Snow", "Sleet", etc.
	Description string // Human-readable description
}

// Report is one successful fetch.
type Report struct {
	Current CurrentWeather
	Daily   DailyForecast
	Precip  PrecipForecast
	Fetched time.Time
}

// Client fetches reports for one location.
type Client struct {
	APIKey  string
	Lat     float64
	Lon     float64
	BaseURL string
	HTTP    *http.Client
}

// Fetch fetches weather data from the One Call 3.0 API.
func (c *Client) Fetch(ctx context.Context) (Report, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.6f", c.Lat))
	params.Set("lon", fmt.Sprintf("%.6f", c.Lon))
	params.Set("appid", c.APIKey)
	params.Set("units", "imperial")
	params.Set("exclude", "hourly,alerts")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("API error: %s", resp.Status)
	}

	var data oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Report{}, fmt.Errorf("decode response: %w", err)
	}

	r := Report{
		Current: CurrentWeather{
			Temp:      data.Current.Temp,
			FeelsLike: data.Current.FeelsLike,
			Humidity:  data.Current.Humidity,
			WindSpeed: data.Current.WindSpeed,
		},
		Fetched: time.Now(),
	}
	if len(data.Current.Weather) > 0 {
		r.Current.Condition = data.Current.Weather[0].Main
		r.Current.Description = data.Current.Weather[0].Description
		r.Current.Icon = data.Current.Weather[0].Icon
	}
	if len(data.Daily) > 0 {
		r.Daily.TempMin = data.Daily[0].Temp.Min
		r.Daily.TempMax = data.Daily[0].Temp.Max
		if len(data.Daily[0].Weather) > 0 {
			r.Daily.Condition = data.Daily[0].Weather[0].Main
			r.Daily.Icon = data.Daily[0].Weather[0].Icon
		}
	}
	r.Precip = analyzePrecipitation(data.Minutely, r.Current.Condition)
	return r, nil
}

// precipThreshold is the rate in mm/h from which it counts as precipitating.
const precipThreshold = 0.1

// analyzePrecipitation analyzes minutely data to determine precipitation status.
func analyzePrecipitation(minutely []Minute, condition string) PrecipForecast {
	if len(minutely) == 0 {
		return PrecipForecast{}
	}

	forecast := PrecipForecast{
		Active: minutely[0].Precipitation >= precipThreshold,
		Type:   precipType(condition),
	}

	if forecast.Active {
		for i, m := range minutely {
			if m.Precipitation < precipThreshold {
				forecast.EndsIn = i
				forecast.Description = fmt.Sprintf("%s ending in %d min", forecast.Type, i)
				break
			}
		}
		if forecast.EndsIn == 0 {
			forecast.Description = fmt.Sprintf("%s for 60+ min", forecast.Type)
		}
		return forecast
	}

	for i, m := range minutely {
		if m.Precipitation >= precipThreshold {
			forecast.StartsIn = i
			forecast.Description = fmt.Sprintf("%s in %d min", forecast.Type, i)
			break
		}
	}
	return forecast
}

// precipType determines precipitation type from condition string.
func precipType(condition string) string {
	switch condition {
	case "Snow", "Sleet", "Drizzle":
		return condition
	case "Thunderstorm":
		return "Storm"
	default:
		return "Rain"
	}
}
