package mock

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/dpd/pkg/dpd/rest"
)

// SOAP answers carry string leaves and a "return" wrapper, as decoded by
// the soap package.

type generator struct {
	seq atomic.Int64
}

func (g *generator) next() int64 {
	return g.seq.Add(1)
}

func (g *generator) packages(args map[string]any) (any, error) {
	var pkgs []any
	for _, key := range []string{"openUMLFeV11", "internationalOpenUMLFeV1"} {
		if m, ok := args[key].(map[string]any); ok {
			pkgs, _ = m["packages"].([]any)
		}
	}

	out := make([]any, 0, len(pkgs))
	for _, p := range pkgs {
		pkg, _ := p.(map[string]any)
		parcels, _ := pkg["parcels"].([]any)

		wireParcels := make([]any, 0, len(parcels))
		for range parcels {
			wireParcels = append(wireParcels, map[string]any{
				"parcelId": fmt.Sprintf("%d", 50000000+g.next()),
			})
		}
		n := g.next()
		out = append(out, map[string]any{
			"packageId": fmt.Sprintf("%d", 10000000+n),
			"parcels":   wireParcels,
			"waybill":   fmt.Sprintf("0000%09dU", n),
			"status":    "OK",
		})
	}
	return soapReturn(map[string]any{
		"Status":   "OK",
		"packages": out,
	}), nil
}

func document(args map[string]any) (any, error) {
	content := "%PDF-1.4 mock document " + uuid.NewString()
	return soapReturn(map[string]any{
		"Status":       "OK",
		"documentData": base64.StdEncoding.EncodeToString([]byte(content)),
		"sessionId":    uuid.NewString(),
	}), nil
}

func pickup(args map[string]any) (any, error) {
	return soapReturn(map[string]any{
		"Status":       "OK",
		"pickupCallId": "PC-" + strings.ToUpper(uuid.NewString()[:8]),
		"status":       "CONFIRMED",
	}), nil
}

func parcelStatus(args map[string]any) (any, error) {
	waybill, _ := args["waybill"].(string)
	now := time.Now().UTC()
	return soapReturn(map[string]any{
		"parcel": map[string]any{
			"waybill":           waybill,
			"status":            "IN_TRANSIT",
			"statusCode":        "030103",
			"statusDescription": "Przesyłka odebrana przez kuriera",
			"lastUpdate":        now.Format(time.RFC3339),
			"events": []any{
				map[string]any{
					"date":        now.Add(-2 * time.Hour).Format(time.RFC3339),
					"description": "Przyjęcie przesyłki w oddziale DPD",
					"location":    "Warszawa",
				},
				map[string]any{
					"date":        now.Format(time.RFC3339),
					"description": "Przesyłka odebrana przez kuriera",
					"location":    "Warszawa",
				},
			},
		},
	}), nil
}

func postcodeInfo(args map[string]any) (any, error) {
	postcode, _ := args["postcode"].(string)
	country, _ := args["countryCode"].(string)
	return soapReturn(map[string]any{
		"postcode":    postcode,
		"city":        "Warszawa",
		"countryCode": country,
		"depot":       "1495",
	}), nil
}

func soapReturn(body map[string]any) map[string]any {
	return map[string]any{"return": body}
}

// PUDO answers are JSON decoded: numbers are float64.

var parcelShops = []map[string]any{
	{
		"parcelShopId": float64(101),
		"pudoId":       "PL11033",
		"name":         "Żabka",
		"address":      "ul. Marszałkowska 10",
		"city":         "Warszawa",
		"postalCode":   "00-590",
		"countryCode":  "PL",
		"latitude":     52.2226,
		"longitude":    21.0164,
		"openingHours": "Mon-Sun 06:00-23:00",
		"services":     []any{"PUDO", "COD"},
		"distance":     0.4,
	},
	{
		"parcelShopId": float64(102),
		"pudoId":       "PL14120",
		"name":         "Kiosk Ruch",
		"address":      "ul. Nowy Świat 5",
		"city":         "Warszawa",
		"postalCode":   "00-496",
		"countryCode":  "PL",
		"latitude":     52.2297,
		"longitude":    21.0225,
		"services":     []any{"PUDO"},
		"distance":     1.2,
	},
}

func findParcelShops(args map[string]any) (any, error) {
	city, _ := args["city"].(string)
	limit, _ := args["limit"].(float64)

	shops := make([]any, 0, len(parcelShops))
	for _, s := range parcelShops {
		if city != "" && !strings.EqualFold(city, s["city"].(string)) {
			continue
		}
		if limit > 0 && len(shops) >= int(limit) {
			break
		}
		shops = append(shops, s)
	}
	return map[string]any{"parcelShops": shops}, nil
}

func getParcelShop(args map[string]any) (any, error) {
	id, _ := args["pudoId"].(string)
	for _, s := range parcelShops {
		if s["pudoId"] == id {
			return s, nil
		}
	}
	return nil, &rest.StatusError{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Body:       `{"message":"parcel shop not found"}`,
	}
}
