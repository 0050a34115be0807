package service

import (
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/schema"
)

// Procedure is a remote operation with the contracts of its request
// argument tree and raw response.
type Procedure struct {
	Name     string
	Service  dpd.ServiceKind
	Request  schema.Type
	Response schema.Type

	// decode turns a validated response into its record.
	decode func(t schema.Type, raw any) (any, error)
}

func recordOf[T any](t schema.Type, raw any) (any, error) {
	v, err := schema.Decode[T](t, raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Procedures used by the services.
var (
	GeneratePackagesNumbersV9 = Procedure{
		Name:     "generatePackagesNumbersV9",
		Service:  dpd.ObjServices,
		Request:  generatePackagesRequest,
		Response: packagesResponseContract,
		decode:   recordOf[wirePackages],
	}
	GenerateInternationalPackageNumbersV1 = Procedure{
		Name:     "generateInternationalPackageNumbersV1",
		Service:  dpd.ObjServices,
		Request:  generateInternationalRequest,
		Response: packagesResponseContract,
		decode:   recordOf[wirePackages],
	}
	GenerateSpedLabelsV4 = Procedure{
		Name:     "generateSpedLabelsV4",
		Service:  dpd.ObjServices,
		Request:  labelsRequest,
		Response: documentResponseContract,
		decode:   recordOf[wireDocument],
	}
	GenerateProtocolV2 = Procedure{
		Name:     "generateProtocolV2",
		Service:  dpd.ObjServices,
		Request:  protocolRequest,
		Response: documentResponseContract,
		decode:   recordOf[wireDocument],
	}
	PackagesPickupCallV4 = Procedure{
		Name:     "packagesPickupCallV4",
		Service:  dpd.ObjServices,
		Request:  pickupRequest,
		Response: pickupResponseContract,
		decode:   recordOf[wirePickup],
	}
	GenerateDomesticReturnLabelV1 = Procedure{
		Name:     "generateDomesticReturnLabelV1",
		Service:  dpd.ObjServices,
		Request:  returnLabelRequest,
		Response: documentResponseContract,
		decode:   recordOf[wireDocument],
	}
	GenerateReturnLabelV1 = Procedure{
		Name:     "generateReturnLabelV1",
		Service:  dpd.ObjServices,
		Request:  returnLabelRequest,
		Response: documentResponseContract,
		decode:   recordOf[wireDocument],
	}
	GetParcelStatus = Procedure{
		Name:     "getParcelStatus",
		Service:  dpd.ObjServices,
		Request:  parcelStatusRequest,
		Response: parcelStatusResponseContract,
		decode:   recordOf[wireParcelStatus],
	}
	GetPostcodeInfo = Procedure{
		Name:     "getPostcodeInfo",
		Service:  dpd.ObjServices,
		Request:  postcodeRequest,
		Response: postcodeResponseContract,
		decode:   recordOf[dpd.PostcodeInfo],
	}
	FindParcelShops = Procedure{
		Name:     "findParcelShops",
		Service:  dpd.PUDO,
		Request:  findParcelShopsRequest,
		Response: parcelShopsResponseContract,
		decode:   recordOf[wireParcelShops],
	}
	GetParcelShop = Procedure{
		Name:     "getParcelShop",
		Service:  dpd.PUDO,
		Request:  getParcelShopRequest,
		Response: parcelShopContract,
		decode:   recordOf[dpd.ParcelShop],
	}
)

// Catalog returns every procedure the services call.
func Catalog() []Procedure {
	return []Procedure{
		GeneratePackagesNumbersV9,
		GenerateInternationalPackageNumbersV1,
		GenerateSpedLabelsV4,
		GenerateProtocolV2,
		PackagesPickupCallV4,
		GenerateDomesticReturnLabelV1,
		GenerateReturnLabelV1,
		GetParcelStatus,
		GetPostcodeInfo,
		FindParcelShops,
		GetParcelShop,
	}
}

// Wire records decoded from validated responses. Fields the response
// contract declares optional are omitempty so a record encodes back to the
// tree it was decoded from.

type wirePackages struct {
	Status     string        `json:"Status,omitempty"`
	StatusInfo string        `json:"StatusInfo,omitempty"`
	Packages   []wirePackage `json:"packages,omitempty"`
}

type wirePackage struct {
	PackageID string       `json:"packageId"`
	Parcels   []wireParcel `json:"parcels"`
	Waybill   string       `json:"waybill"`
	Status    string       `json:"status,omitempty"`
}

type wireParcel struct {
	ParcelID string `json:"parcelId"`
}

type wireDocument struct {
	Status       string `json:"Status,omitempty"`
	StatusInfo   string `json:"StatusInfo,omitempty"`
	DocumentData string `json:"documentData"`
	SessionID    string `json:"sessionId,omitempty"`
}

type wirePickup struct {
	Status       string `json:"Status,omitempty"`
	StatusInfo   string `json:"StatusInfo,omitempty"`
	PickupCallID string `json:"pickupCallId"`
	State        string `json:"status"`
}

type wireParcelStatus struct {
	Parcel dpd.ParcelStatus `json:"parcel"`
}

type wireParcelShops struct {
	ParcelShops []dpd.ParcelShop `json:"parcelShops"`
}
