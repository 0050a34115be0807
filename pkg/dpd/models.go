package dpd

import "time"

// Address is a sender or receiver.
type Address struct {
	Company     string `json:"company,omitempty"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Parcel is one physical box within a package. Weight is in kilograms,
// sizes in centimetres.
type Parcel struct {
	Content       string  `json:"content,omitempty"`
	CustomerData1 string  `json:"customerData1,omitempty"`
	CustomerData2 string  `json:"customerData2,omitempty"`
	CustomerData3 string  `json:"customerData3,omitempty"`
	SizeX         float64 `json:"sizeX,omitempty"`
	SizeY         float64 `json:"sizeY,omitempty"`
	SizeZ         float64 `json:"sizeZ,omitempty"`
	Weight        float64 `json:"weight"`
}

// PayerType selects who pays for the shipment.
type PayerType string

const (
	PayerSender     PayerType = "SENDER"
	PayerReceiver   PayerType = "RECEIVER"
	PayerThirdParty PayerType = "THIRD_PARTY"
)

// Money is an amount with an ISO currency code.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// Guarantee is a delivery time guarantee. Value holds HH:MM for TIMEFIXED.
type Guarantee struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// DPDPickup delivers the package to a pickup point.
type DPDPickup struct {
	PUDO string `json:"pudo"`
}

// PackageServices are the optional additional services of a package.
type PackageServices struct {
	COD           *Money     `json:"cod,omitempty"`
	DeclaredValue *Money     `json:"declaredValue,omitempty"`
	CUD           bool       `json:"cud,omitempty"`
	ROD           bool       `json:"rod,omitempty"`
	Self          bool       `json:"self,omitempty"`
	Guarantee     *Guarantee `json:"guarantee,omitempty"`
	PUDOReturn    bool       `json:"pudoReturn,omitempty"`
	DPDPickup     *DPDPickup `json:"dpdPickup,omitempty"`
	CarryIn       bool       `json:"carryIn,omitempty"`
	DPDLQ         bool       `json:"dpdLQ,omitempty"`
	DPDFood       bool       `json:"dpdFood,omitempty"`
}

// Package is a shipment to register with DPD.
type Package struct {
	Sender        Address          `json:"sender"`
	Receiver      Address          `json:"receiver"`
	Parcels       []Parcel         `json:"parcels"`
	PayerType     PayerType        `json:"payerType,omitempty"`
	ThirdPartyFID string           `json:"thirdPartyFid,omitempty"`
	Ref1          string           `json:"ref1,omitempty"`
	Ref2          string           `json:"ref2,omitempty"`
	Ref3          string           `json:"ref3,omitempty"`
	Services      *PackageServices `json:"services,omitempty"`
}

// PackageStatus is the per-package status returned by number generation.
type PackageStatus struct {
	Status            string `json:"status"`
	StatusDescription string `json:"statusDescription,omitempty"`
}

// GeneratedPackage is a package registered by DPD.
type GeneratedPackage struct {
	PackageID string         `json:"packageId"`
	ParcelIDs []string       `json:"parcelIds"`
	Waybill   string         `json:"waybill"`
	Status    *PackageStatus `json:"status,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

// PackageGenerationResult is the result of package number generation.
type PackageGenerationResult struct {
	Packages []GeneratedPackage `json:"packages"`
}

// LabelFormat is the document format of a label.
type LabelFormat string

const (
	FormatPDF LabelFormat = "PDF"
	FormatZPL LabelFormat = "ZPL"
	FormatEPL LabelFormat = "EPL"
)

// PageFormat is the page size of a label document.
type PageFormat string

const (
	PageA4  PageFormat = "A4"
	PageA6  PageFormat = "A6"
	PageLBL PageFormat = "LBL"
)

// LabelOptions control label rendering. Zero values select PDF, A4 and the
// BIC3 variant.
type LabelOptions struct {
	Format     LabelFormat `json:"format,omitempty"`
	PageFormat PageFormat  `json:"pageFormat,omitempty"`
	Variant    string      `json:"variant,omitempty"`
}

// Label is a base64 encoded label document.
type Label struct {
	Data       string      `json:"labelData"`
	Format     LabelFormat `json:"format"`
	PageFormat PageFormat  `json:"pageFormat"`
}

// Protocol is a base64 encoded handover protocol.
type Protocol struct {
	Data      string `json:"protocolData"`
	SessionID string `json:"sessionId,omitempty"`
}

// PickupRequest orders a courier. Date is YYYY-MM-DD, times are HH:MM.
type PickupRequest struct {
	PickupDate     string   `json:"pickupDate"`
	PickupTimeFrom string   `json:"pickupTimeFrom"`
	PickupTimeTo   string   `json:"pickupTimeTo"`
	Waybills       []string `json:"waybills,omitempty"`
}

// Pickup is a confirmed courier pickup.
type Pickup struct {
	PickupID   string `json:"pickupId"`
	Status     string `json:"status"`
	PickupDate string `json:"pickupDate"`
}

// ParcelEvent is one tracking event.
type ParcelEvent struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// ParcelStatus is the tracking state of a waybill.
type ParcelStatus struct {
	Waybill           string        `json:"waybill"`
	Status            string        `json:"status"`
	StatusCode        string        `json:"statusCode,omitempty"`
	StatusDescription string        `json:"statusDescription,omitempty"`
	LastUpdate        string        `json:"lastUpdate,omitempty"`
	Events            []ParcelEvent `json:"events,omitempty"`
}

// PostcodeInfo describes a postcode served by DPD.
type PostcodeInfo struct {
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
	Depot       string `json:"depot,omitempty"`
}

// ParcelShop is a DPD pickup point.
type ParcelShop struct {
	ParcelShopID int64    `json:"parcelShopId"`
	PudoID       string   `json:"pudoId"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	PostalCode   string   `json:"postalCode"`
	CountryCode  string   `json:"countryCode"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	OpeningHours string   `json:"openingHours,omitempty"`
	Services     []string `json:"services,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
}

// ParcelShopQuery filters a parcel shop search. CountryCode is required.
type ParcelShopQuery struct {
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	PostalCode  string   `json:"postalCode,omitempty"`
	CountryCode string   `json:"countryCode"`
	Limit       int      `json:"limit,omitempty"`
	Services    []string `json:"services,omitempty"`
	HideClosed  *bool    `json:"hideClosed,omitempty"`
	Latitude    float64  `json:"latitude,omitempty"`
	Longitude   float64  `json:"longitude,omitempty"`
	Radius      float64  `json:"radius,omitempty"`
}

// ShipmentLabel is the outcome of the generate-then-label workflow.
type ShipmentLabel struct {
	Waybill     string    `json:"waybill"`
	PackageID   string    `json:"packageId"`
	ParcelIDs   []string  `json:"parcelIds"`
	Label       Label     `json:"label"`
	TrackingURL string    `json:"trackingUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
