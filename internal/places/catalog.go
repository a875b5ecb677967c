package places

import "strings"

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

var categories = []Category{
	{ID: "restaurant", Name: "Restaurants", Icon: "🍽️"},
	{ID: "cafe", Name: "Cafes", Icon: "☕"},
	{ID: "bar", Name: "Bars", Icon: "🍸"},
	{ID: "park", Name: "Parks", Icon: "🌳"},
	{ID: "museum", Name: "Museums", Icon: "🏛️"},
	{ID: "movie_theater", Name: "Cinemas", Icon: "🎬"},
	{ID: "bowling_alley", Name: "Bowling", Icon: "🎳"},
	{ID: "art_gallery", Name: "Galleries", Icon: "🎨"},
}

// Categories lists the searchable venue categories.
func Categories() []Category { return categories }

type Location struct {
	City      string  `json:"city"`
	State     string  `json:"state,omitempty"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var popular = []Location{
	{City: "New York", State: "NY", Country: "United States", Latitude: 40.7128, Longitude: -74.0060},
	{City: "Los Angeles", State: "CA", Country: "United States", Latitude: 34.0522, Longitude: -118.2437},
	{City: "Chicago", State: "IL", Country: "United States", Latitude: 41.8781, Longitude: -87.6298},
	{City: "Miami", State: "FL", Country: "United States", Latitude: 25.7617, Longitude: -80.1918},
	{City: "Toronto", State: "ON", Country: "Canada", Latitude: 43.6532, Longitude: -79.3832},
	{City: "London", Country: "United Kingdom", Latitude: 51.5074, Longitude: -0.1278},
	{City: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522},
	{City: "Berlin", Country: "Germany", Latitude: 52.5200, Longitude: 13.4050},
	{City: "Madrid", Country: "Spain", Latitude: 40.4168, Longitude: -3.7038},
	{City: "Dubai", Country: "United Arab Emirates", Latitude: 25.2048, Longitude: 55.2708},
	{City: "Mumbai", Country: "India", Latitude: 19.0760, Longitude: 72.8777},
	{City: "Tokyo", Country: "Japan", Latitude: 35.6762, Longitude: 139.6503},
	{City: "Seoul", Country: "South Korea", Latitude: 37.5665, Longitude: 126.9780},
	{City: "Sydney", Country: "Australia", Latitude: -33.8688, Longitude: 151.2093},
	{City: "São Paulo", Country: "Brazil", Latitude: -23.5505, Longitude: -46.6333},
}

// PopularLocations is the city picker shortlist.
func PopularLocations() []Location { return popular }

// generic venues used when the live search is unavailable
var curated = []Place{
	{ID: "curated_restaurant_1", DisplayName: DisplayName{Text: "Neighborhood Bistro"}, FormattedAddress: "A cozy local spot near you", Rating: 4.5, PriceLevel: "PRICE_LEVEL_MODERATE", Types: []string{"restaurant"}},
	{ID: "curated_restaurant_2", DisplayName: DisplayName{Text: "Rooftop Trattoria"}, FormattedAddress: "Italian food with a view", Rating: 4.6, PriceLevel: "PRICE_LEVEL_EXPENSIVE", Types: []string{"restaurant"}},
	{ID: "curated_cafe_1", DisplayName: DisplayName{Text: "Corner Coffee House"}, FormattedAddress: "Quiet cafe, great for a first date", Rating: 4.7, PriceLevel: "PRICE_LEVEL_INEXPENSIVE", Types: []string{"cafe"}},
	{ID: "curated_bar_1", DisplayName: DisplayName{Text: "Speakeasy Lounge"}, FormattedAddress: "Craft cocktails, low lights", Rating: 4.4, PriceLevel: "PRICE_LEVEL_MODERATE", Types: []string{"bar"}},
	{ID: "curated_park_1", DisplayName: DisplayName{Text: "City Botanical Garden"}, FormattedAddress: "Walking trails and picnic lawns", Rating: 4.8, PriceLevel: "PRICE_LEVEL_FREE", Types: []string{"park"}},
	{ID: "curated_museum_1", DisplayName: DisplayName{Text: "Museum of Modern Art"}, FormattedAddress: "Rotating exhibitions", Rating: 4.6, PriceLevel: "PRICE_LEVEL_INEXPENSIVE", Types: []string{"museum"}},
	{ID: "curated_movie_theater_1", DisplayName: DisplayName{Text: "Indie Cinema"}, FormattedAddress: "Arthouse films and popcorn", Rating: 4.3, PriceLevel: "PRICE_LEVEL_INEXPENSIVE", Types: []string{"movie_theater"}},
	{ID: "curated_bowling_alley_1", DisplayName: DisplayName{Text: "Retro Bowl"}, FormattedAddress: "Lanes, arcade and milkshakes", Rating: 4.2, PriceLevel: "PRICE_LEVEL_INEXPENSIVE", Types: []string{"bowling_alley"}},
	{ID: "curated_art_gallery_1", DisplayName: DisplayName{Text: "Warehouse Gallery"}, FormattedAddress: "Local artists, free entry", Rating: 4.5, PriceLevel: "PRICE_LEVEL_FREE", Types: []string{"art_gallery"}},
}

// Curated returns the offline venue list, narrowed to category unless it is "" or "all".
func Curated(category string) []Place {
	category = strings.TrimSpace(category)
	if category == "" || category == "all" {
		return append([]Place(nil), curated...)
	}
	var out []Place
	for _, p := range curated {
		for _, t := range p.Types {
			if t == category {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
