package weather

import (
	"image/color"
	"strings"
)

// Icon shapes on a 24x24 grid, stroked in currentColor.
const (
	iconSun = `<circle cx="12" cy="12" r="5"/>
<line x1="12" y1="1" x2="12" y2="3"/><line x1="12" y1="21" x2="12" y2="23"/>
<line x1="4.22" y1="4.22" x2="5.64" y2="5.64"/><line x1="18.36" y1="18.36" x2="19.78" y2="19.78"/>
<line x1="1" y1="12" x2="3" y2="12"/><line x1="21" y1="12" x2="23" y2="12"/>
<line x1="4.22" y1="19.78" x2="5.64" y2="18.36"/><line x1="18.36" y1="5.64" x2="19.78" y2="4.22"/>`

	iconMoon = `<path d="M21 12.79A9 9 0 1 1 11.21 3 7 7 0 0 0 21 12.79z"/>`

	iconCloud = `<path d="M18 10h-1.26A8 8 0 1 0 9 20h9a5 5 0 0 0 0-10z"/>`

	iconCloudSun = `<path d="M12 2v2"/><path d="M4.93 4.93l1.41 1.41"/><path d="M20 12h2"/>
<path d="M19.07 4.93l-1.41 1.41"/><path d="M15.95 12.65a4 4 0 0 0-5.93-4.6"/>
<path d="M13 22H7a5 5 0 1 1 4.9-6H13a3 3 0 0 1 0 6z"/>`

	iconCloudMoon = `<path d="M13 16a3 3 0 1 1 0 6H7a5 5 0 1 1 4.9-6z"/>
<path d="M10.1 9A6 6 0 0 1 16 4a4 4 0 0 0 6 6 6 6 0 0 1-3 5.197"/>`

	iconCloudRain = `<line x1="16" y1="13" x2="16" y2="21"/><line x1="8" y1="13" x2="8" y2="21"/>
<line x1="12" y1="15" x2="12" y2="23"/><path d="M20 16.58A5 5 0 0 0 18 7h-1.26A8 8 0 1 0 4 15.25"/>`

	iconCloudSnow = `<path d="M20 17.58A5 5 0 0 0 18 8h-1.26A8 8 0 1 0 4 16.25"/>
<line x1="8" y1="16" x2="8.01" y2="16"/><line x1="8" y1="20" x2="8.01" y2="20"/>
<line x1="12" y1="18" x2="12.01" y2="18"/><line x1="12" y1="22" x2="12.01" y2="22"/>
<line x1="16" y1="16" x2="16.01" y2="16"/><line x1="16" y1="20" x2="16.01" y2="20"/>`

	iconCloudLightning = `<path d="M19 16.9A5 5 0 0 0 18 7h-1.26a8 8 0 1 0-11.62 9"/>
<polyline points="13 11 9 17 15 17 11 23"/>`

	iconCloudFog = `<path d="M4 14.9A7 7 0 1 1 15.71 8h1.79a4.5 4.5 0 0 1 2.5 8.24"/>
<path d="M16 17H7"/><path d="M17 21H9"/>`
)

// Colors
var (
	colorSunny      = color.RGBA{255, 200, 50, 255}  // Yellow/gold for sunny
	colorNight      = color.RGBA{100, 149, 237, 255} // Cornflower blue for night
	colorCloudy     = color.RGBA{180, 180, 180, 255} // Gray for cloudy
	colorRain       = color.RGBA{100, 149, 237, 255} // Blue for rain
	colorSnow       = color.RGBA{200, 220, 255, 255} // Light blue for snow
	colorStorm      = color.RGBA{255, 200, 50, 255}  // Yellow for lightning
	colorBackground = color.RGBA{25, 25, 25, 255}
	colorWhite      = color.RGBA{255, 255, 255, 255}
	colorGray       = color.RGBA{160, 160, 160, 255}
)

func svgDocument(shapes string) string {
	return `<svg xmlns="http://www.w3.org/2000/svg" width="24" height="24" viewBox="0 0 24 24">` +
		`<g fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round">` +
		shapes + `</g></svg>`
}

// weatherIcon returns the SVG document and color for an OpenWeatherMap icon code.
func weatherIcon(code string) (string, color.Color) {
	// OpenWeatherMap icon codes:
	// 01 clear, 02 few clouds, 03/04 clouds, 09/10 rain, 11 thunderstorm,
	// 13 snow, 50 mist. A trailing n marks night.
	night := strings.HasSuffix(code, "n")

	switch {
	case strings.HasPrefix(code, "01"):
		if night {
			return svgDocument(iconMoon), colorNight
		}
		return svgDocument(iconSun), colorSunny
	case strings.HasPrefix(code, "02"):
		if night {
			return svgDocument(iconCloudMoon), colorNight
		}
		return svgDocument(iconCloudSun), colorSunny
	case strings.HasPrefix(code, "09"), strings.HasPrefix(code, "10"):
		return svgDocument(iconCloudRain), colorRain
	case strings.HasPrefix(code, "11"):
		return svgDocument(iconCloudLightning), colorStorm
	case strings.HasPrefix(code, "13"):
		return svgDocument(iconCloudSnow), colorSnow
	case strings.HasPrefix(code, "50"):
		return svgDocument(iconCloudFog), colorCloudy
	default:
		return svgDocument(iconCloud), colorCloudy
	}
}
