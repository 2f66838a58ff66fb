package kobo

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const storeAPI = "https://storeapi.kobo.com/v1"

// nativeResources is the resource map served by the Kobo store. Entries under
// storeapi.kobo.com and the image templates are redirected to this server;
// browser pages are left pointing at Kobo.
//
//nolint:gochecknoglobals // Static protocol table
var nativeResources = map[string]any{
	"account_page":                          "https://secure.kobobooks.com/profile",
	"add_entitlement":                       "https://storeapi.kobo.com/v1/library/{RevisionIds}",
	"affiliaterequest":                      "https://storeapi.kobo.com/v1/affiliate",
	"assets":                                "https://storeapi.kobo.com/v1/assets",
	"authorproduct_recommendations":         "https://storeapi.kobo.com/v1/products/books/authors/recommendations",
	"autocomplete":                          "https://storeapi.kobo.com/v1/products/autocomplete",
	"blackstone_header":                     map[string]any{"key": "x-amz-request-payer", "value": "requester"},
	"book":                                  "https://storeapi.kobo.com/v1/products/books/{ProductId}",
	"book_detail_page":                      "https://store.kobobooks.com/{culture}/ebook/{slug}",
	"book_landing_page":                     "https://store.kobobooks.com/ebooks",
	"book_subscription":                     "https://storeapi.kobo.com/v1/products/books/subscriptions",
	"categories":                            "https://storeapi.kobo.com/v1/categories",
	"categories_page":                       "https://store.kobobooks.com/ebooks/categories",
	"category":                              "https://storeapi.kobo.com/v1/categories/{CategoryId}",
	"category_featured_lists":               "https://storeapi.kobo.com/v1/categories/{CategoryId}/featured",
	"category_products":                     "https://storeapi.kobo.com/v1/categories/{CategoryId}/products",
	"checkout_borrowed_book":                "https://storeapi.kobo.com/v1/library/borrow",
	"configuration_data":                    "https://storeapi.kobo.com/v1/configuration",
	"content_access_book":                   "https://storeapi.kobo.com/v1/products/books/{ProductId}/access",
	"daily_deal":                            "https://storeapi.kobo.com/v1/products/dailydeal",
	"deals":                                 "https://storeapi.kobo.com/v1/deals",
	"delete_entitlement":                    "https://storeapi.kobo.com/v1/library/{Ids}",
	"delete_tag":                            "https://storeapi.kobo.com/v1/library/tags/{TagId}",
	"delete_tag_items":                      "https://storeapi.kobo.com/v1/library/tags/{TagId}/items/delete",
	"device_auth":                           "https://storeapi.kobo.com/v1/auth/device",
	"device_refresh":                        "https://storeapi.kobo.com/v1/auth/refresh",
	"dictionary_host":                       "https://kbdownload1-a.akamaihd.net",
	"discovery_host":                        "https://discovery.kobobooks.com",
	"eula_page":                             "https://www.kobo.com/termsofuse?style=onestore",
	"exchange_auth":                         "https://storeapi.kobo.com/v1/auth/exchange",
	"external_book":                         "https://storeapi.kobo.com/v1/products/books/external/{Ids}",
	"featured_list":                         "https://storeapi.kobo.com/v1/products/featured/{FeaturedListId}",
	"featured_lists":                        "https://storeapi.kobo.com/v1/products/featured",
	"fte_feedback":                          "https://storeapi.kobo.com/v1/products/ftefeedback",
	"get_tests_request":                     "https://storeapi.kobo.com/v1/analytics/gettests",
	"help_page":                             "https://www.kobo.com/help",
	"image_host":                            "https://kbimages1-a.akamaihd.net",
	"image_url_quality_template":            "https://kbimages1-a.akamaihd.net/{ImageId}/{Width}/{Height}/{Quality}/{IsGreyscale}/image.jpg",
	"image_url_template":                    "https://kbimages1-a.akamaihd.net/{ImageId}/{Width}/{Height}/false/image.jpg",
	"kobo_audiobooks_enabled":               "False",
	"kobo_audiobooks_orange_deal_enabled":   "False",
	"kobo_audiobooks_subscriptions_enabled": "False",
	"kobo_nativeborrow_enabled":             "False",
	"kobo_onestorelibrary_enabled":          "False",
	"kobo_redeem_enabled":                   "False",
	"kobo_shelfie_enabled":                  "False",
	"kobo_subscriptions_enabled":            "False",
	"kobo_superpoints_enabled":              "False",
	"kobo_wishlist_enabled":                 "False",
	"library_book":                          "https://storeapi.kobo.com/v1/user/library/books/{LibraryItemId}",
	"library_items":                         "https://storeapi.kobo.com/v1/user/library",
	"library_metadata":                      "https://storeapi.kobo.com/v1/library/{Ids}/metadata",
	"library_prices":                        "https://storeapi.kobo.com/v1/user/library/previews/prices",
	"library_stack":                         "https://storeapi.kobo.com/v1/user/library/stacks/{LibraryItemId}",
	"library_sync":                          "https://storeapi.kobo.com/v1/library/sync",
	"notifications_registration_issue":      "https://storeapi.kobo.com/v1/notifications/registration",
	"oauth_host":                            "https://oauth.kobo.com",
	"post_analytics_event":                  "https://storeapi.kobo.com/v1/analytics/event",
	"privacy_page":                          "https://www.kobo.com/privacypolicy?style=onestore",
	"product_nextread":                      "https://storeapi.kobo.com/v1/products/{ProductIds}/nextread",
	"product_prices":                        "https://storeapi.kobo.com/v1/products/{ProductIds}/prices",
	"product_recommendations":               "https://storeapi.kobo.com/v1/products/{ProductId}/recommendations",
	"product_reviews":                       "https://storeapi.kobo.com/v1/products/{ProductIds}/reviews",
	"products":                              "https://storeapi.kobo.com/v1/products",
	"rating":                                "https://storeapi.kobo.com/v1/products/{ProductId}/rating/{Rating}",
	"reading_state":                         "https://storeapi.kobo.com/v1/library/{Ids}/state",
	"related_items":                         "https://storeapi.kobo.com/v1/products/{Id}/related",
	"remaining_book_series":                 "https://storeapi.kobo.com/v1/products/books/series/{SeriesId}",
	"rename_tag":                            "https://storeapi.kobo.com/v1/library/tags/{TagId}",
	"review":                                "https://storeapi.kobo.com/v1/products/reviews/{ReviewId}",
	"review_sentiment":                      "https://storeapi.kobo.com/v1/products/reviews/{ReviewId}/sentiment/{Sentiment}",
	"shelfie_recommendations":               "https://storeapi.kobo.com/v1/user/recommendations/shelfie",
	"sign_in_page":                          "https://authorize.kobo.com/signin",
	"social_authorization_host":             "https://social.kobobooks.com:8443",
	"social_host":                           "https://social.kobobooks.com",
	"store_host":                            "store.kobobooks.com",
	"tag_items":                             "https://storeapi.kobo.com/v1/library/tags/{TagId}/Items",
	"tags":                                  "https://storeapi.kobo.com/v1/library/tags",
	"taste_profile":                         "https://storeapi.kobo.com/v1/products/tasteprofile",
	"update_accessibility_to_preview":       "https://storeapi.kobo.com/v1/library/{EntitlementIds}/preview",
	"use_one_store":                         "False",
	"user_loyalty_benefits":                 "https://storeapi.kobo.com/v1/user/loyalty/benefits",
	"user_platform":                         "https://storeapi.kobo.com/v1/user/platform",
	"user_profile":                          "https://storeapi.kobo.com/v1/user/profile",
	"user_ratings":                          "https://storeapi.kobo.com/v1/user/ratings",
	"user_recommendations":                  "https://storeapi.kobo.com/v1/user/recommendations",
	"user_reviews":                          "https://storeapi.kobo.com/v1/user/reviews",
	"user_wishlist":                         "https://storeapi.kobo.com/v1/user/wishlist",
	"userguide_host":                        "https://kbdownload1-a.akamaihd.net",
}

// ResourceOverrides replaces or adds resource entries. String values may use
// {base} and {api} placeholders for this server's advertised URLs.
type ResourceOverrides map[string]any

// LoadResourceOverrides reads overrides from a YAML or JSON file.
func LoadResourceOverrides(path string) (ResourceOverrides, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied config file
	if err != nil {
		return nil, fmt.Errorf("read resources file: %w", err)
	}
	var out ResourceOverrides
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse resources file %s: %w", path, err)
	}
	return out, nil
}

// Resources returns the endpoint map for a device, with every store API URL and
// image template rewritten to point back at this server.
func Resources(urls URLs, overrides ResourceOverrides) map[string]any {
	out := make(map[string]any, len(nativeResources)+len(overrides))
	for k, v := range nativeResources {
		if s, ok := v.(string); ok && strings.HasPrefix(s, storeAPI) {
			v = urls.API() + strings.TrimPrefix(s, storeAPI)
		}
		out[k] = v
	}
	out["image_host"] = urls.Base()
	out["image_url_template"] = urls.CoverTemplate()
	out["image_url_quality_template"] = urls.CoverQualityTemplate()

	placeholders := strings.NewReplacer("{base}", urls.Base(), "{api}", urls.API())
	for k, v := range overrides {
		if s, ok := v.(string); ok {
			v = placeholders.Replace(s)
		}
		out[k] = v
	}
	return out
}

// ResourceNames returns the built-in resource keys.
func ResourceNames() []string {
	return sortedKeys(nativeResources)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
