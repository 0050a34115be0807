package service

import (
	"regexp"

	"github.com/tournevent/dpd/pkg/dpd/schema"
)

// Input contracts.
var (
	addressContract = schema.Object(
		schema.Optional("company", schema.String()),
		schema.Required("name", schema.String(schema.MinLen(1))),
		schema.Required("address", schema.String(schema.MinLen(1))),
		schema.Required("city", schema.String(schema.MinLen(1))),
		schema.Required("postalCode", schema.String(schema.MinLen(1))),
		schema.Required("countryCode", schema.String(schema.Len(2))),
		schema.Optional("email", schema.String(schema.Email())),
		schema.Optional("phone", schema.String()),
	)

	parcelContract = schema.Object(
		schema.Optional("content", schema.String(schema.MaxLen(20))),
		schema.Optional("customerData1", schema.String(schema.MaxLen(35))),
		schema.Optional("customerData2", schema.String(schema.MaxLen(35))),
		schema.Optional("customerData3", schema.String(schema.MaxLen(35))),
		schema.Optional("sizeX", schema.Number(schema.Positive())),
		schema.Optional("sizeY", schema.Number(schema.Positive())),
		schema.Optional("sizeZ", schema.Number(schema.Positive())),
		schema.Required("weight", schema.Number(schema.Positive())),
	)

	servicesContract = schema.Object(
		schema.Optional("cod", schema.Object(
			schema.Required("amount", schema.Number(schema.Positive())),
			schema.Optional("currency", schema.Enum("PLN", "EUR", "RON", "CZK")),
		)),
		schema.Optional("declaredValue", schema.Object(
			schema.Required("amount", schema.Number(schema.Positive())),
			schema.Optional("currency", schema.Enum("PLN", "EUR")),
		)),
		schema.Optional("cud", schema.Bool()),
		schema.Optional("rod", schema.Bool()),
		schema.Optional("self", schema.Bool()),
		schema.Optional("guarantee", schema.Object(
			schema.Required("type", schema.Enum("TIME0930", "TIME1200", "SATURDAY", "TIMEFIXED", "DPDTODAY")),
			schema.Optional("value", schema.String(schema.Pattern(timePattern, "must be HH:MM"))),
		)),
		schema.Optional("pudoReturn", schema.Bool()),
		schema.Optional("dpdPickup", schema.Object(
			schema.Required("pudo", schema.String(schema.MinLen(1))),
		)),
		schema.Optional("carryIn", schema.Bool()),
		schema.Optional("dpdLQ", schema.Bool()),
		schema.Optional("dpdFood", schema.Bool()),
	)

	packageContract = schema.Object(
		schema.Required("sender", addressContract),
		schema.Required("receiver", addressContract),
		schema.Required("parcels", schema.Array(parcelContract, schema.MinItems(1))),
		schema.Optional("payerType", schema.Enum("SENDER", "RECEIVER", "THIRD_PARTY")),
		schema.Optional("thirdPartyFid", schema.String()),
		schema.Optional("ref1", schema.String(schema.MaxLen(50))),
		schema.Optional("ref2", schema.String(schema.MaxLen(50))),
		schema.Optional("ref3", schema.String(schema.MaxLen(50))),
		schema.Optional("services", servicesContract),
	)

	packagesInput = schema.Object(
		schema.Required("packages", schema.Array(packageContract, schema.MinItems(1))),
	)

	waybillsInput = schema.Object(
		schema.Required("waybills", schema.Array(schema.String(schema.MinLen(1)), schema.MinItems(1))),
	)

	labelOptionsInput = schema.Object(
		schema.Optional("format", schema.Enum("PDF", "ZPL", "EPL")),
		schema.Optional("pageFormat", schema.Enum("A4", "A6", "LBL")),
		schema.Optional("variant", schema.String()),
	)

	returnInput = schema.Object(
		schema.Required("waybills", schema.Array(schema.String(schema.MinLen(1)), schema.MinItems(1))),
		schema.Required("receiver", addressContract),
		schema.Required("options", labelOptionsInput),
	)

	pickupInput = schema.Object(
		schema.Required("pickupDate", schema.String(schema.Pattern(datePattern, "must be YYYY-MM-DD"))),
		schema.Required("pickupTimeFrom", schema.String(schema.Pattern(timePattern, "must be HH:MM"))),
		schema.Required("pickupTimeTo", schema.String(schema.Pattern(timePattern, "must be HH:MM"))),
		schema.Optional("waybills", schema.Array(schema.String(schema.MinLen(1)))),
	)

	waybillInput = schema.Object(
		schema.Required("waybill", schema.String(schema.MinLen(1))),
	)

	postcodeInput = schema.Object(
		schema.Required("postcode", schema.String(schema.MinLen(1))),
		schema.Required("countryCode", schema.String(schema.Len(2))),
	)

	parcelShopQueryInput = schema.Object(
		schema.Optional("address", schema.String()),
		schema.Optional("city", schema.String()),
		schema.Optional("postalCode", schema.String()),
		schema.Required("countryCode", schema.String(schema.Len(2))),
		schema.Optional("limit", schema.Integer(schema.Positive())),
		schema.Optional("services", schema.Array(schema.String())),
		schema.Optional("hideClosed", schema.Bool()),
		schema.Optional("latitude", schema.Number()),
		schema.Optional("longitude", schema.Number()),
		schema.Optional("radius", schema.Number(schema.Positive())),
	)

	pudoIDInput = schema.Object(
		schema.Required("pudoId", schema.String(schema.MinLen(1))),
	)
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Request contracts check the argument trees sent to DPD.
var (
	authDataContract = schema.Object(
		schema.Required("login", schema.String(schema.MinLen(1))),
		schema.Required("password", schema.String(schema.MinLen(1))),
		schema.Required("masterFid", schema.String(schema.MinLen(1))),
	)

	generatePackagesRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("openUMLFeV11", schema.Object(
			schema.Required("packages", schema.Array(schema.Any(), schema.MinItems(1))),
		)),
		schema.Required("pkgNumsGenerationPolicyV1", schema.Enum("STOP_ON_FIRST_ERROR", "IGNORE_ERRORS", "ALL_OR_NOTHING")),
		schema.Required("langCode", schema.String(schema.Len(2))),
	)

	generateInternationalRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("internationalOpenUMLFeV1", schema.Object(
			schema.Required("packages", schema.Array(schema.Any(), schema.MinItems(1))),
		)),
	)

	labelsRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("dpdServicesParamsV1", schema.Object(
			schema.Required("waybills", schema.Array(schema.String(), schema.MinItems(1))),
		)),
		schema.Required("outputDocFormatV1", schema.Enum("PDF", "ZPL", "EPL")),
		schema.Required("outputDocPageFormatV1", schema.Enum("A4", "A6", "LBL")),
		schema.Required("outputLabelType", schema.Enum("LABEL")),
		schema.Required("labelVariant", schema.String(schema.MinLen(1))),
	)

	protocolRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("dpdServicesParamsV1", schema.Object(
			schema.Required("waybills", schema.Array(schema.String(), schema.MinItems(1))),
		)),
	)

	pickupRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("pickupDate", schema.String()),
		schema.Required("pickupTimeFrom", schema.String()),
		schema.Required("pickupTimeTo", schema.String()),
		schema.Optional("waybills", schema.Array(schema.String())),
	)

	returnLabelRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("returnedWaybillsV1", schema.Object(
			schema.Required("waybill", schema.Array(schema.String(), schema.MinItems(1))),
		)),
		schema.Required("receiver", schema.Any()),
		schema.Required("outputDocFormatV1", schema.Enum("PDF", "ZPL", "EPL")),
		schema.Required("outputDocPageFormatV1", schema.Enum("A4", "A6", "LBL")),
		schema.Required("outputLabelType", schema.Enum("RETURN")),
		schema.Optional("labelVariant", schema.String()),
	)

	parcelStatusRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("waybill", schema.String(schema.MinLen(1))),
	)

	postcodeRequest = schema.Object(
		schema.Required("authDataV1", authDataContract),
		schema.Required("postcode", schema.String(schema.MinLen(1))),
		schema.Required("countryCode", schema.String(schema.Len(2))),
	)

	findParcelShopsRequest = parcelShopQueryInput

	getParcelShopRequest = pudoIDInput
)

// Response contracts. SOAP leaves decode as strings, so every SOAP field
// is declared as a string; PUDO responses are JSON and carry real numbers.
var (
	statusFields = []schema.Field{
		schema.Optional("Status", schema.String()),
		schema.Optional("StatusInfo", schema.String()),
	}

	packagesResponseContract = schema.Object(statusFields...).Extend(
		schema.Optional("packages", schema.Array(schema.Object(
			schema.Required("packageId", schema.String()),
			schema.Required("parcels", schema.Array(schema.Object(
				schema.Required("parcelId", schema.String()),
			))),
			schema.Required("waybill", schema.String()),
			schema.Optional("status", schema.String()),
		))),
	)

	documentResponseContract = schema.Object(statusFields...).Extend(
		schema.Required("documentData", schema.String()),
		schema.Optional("sessionId", schema.String()),
	)

	pickupResponseContract = schema.Object(statusFields...).Extend(
		schema.Required("pickupCallId", schema.String()),
		schema.Required("status", schema.String()),
	)

	parcelStatusResponseContract = schema.Object(
		schema.Required("parcel", schema.Object(
			schema.Required("waybill", schema.String()),
			schema.Required("status", schema.String()),
			schema.Optional("statusCode", schema.String()),
			schema.Optional("statusDescription", schema.String()),
			schema.Optional("lastUpdate", schema.String()),
			schema.Optional("events", schema.Array(schema.Object(
				schema.Required("date", schema.String()),
				schema.Required("description", schema.String()),
				schema.Optional("location", schema.String()),
			))),
		)),
	)

	postcodeResponseContract = schema.Object(
		schema.Required("postcode", schema.String()),
		schema.Required("city", schema.String()),
		schema.Required("countryCode", schema.String()),
		schema.Optional("depot", schema.String()),
	)

	parcelShopContract = schema.Object(
		schema.Required("parcelShopId", schema.Integer()),
		schema.Required("pudoId", schema.String()),
		schema.Required("name", schema.String()),
		schema.Required("address", schema.String()),
		schema.Required("city", schema.String()),
		schema.Required("postalCode", schema.String()),
		schema.Required("countryCode", schema.String()),
		schema.Optional("latitude", schema.Number()),
		schema.Optional("longitude", schema.Number()),
		schema.Optional("openingHours", schema.String()),
		schema.Optional("services", schema.Array(schema.String())),
		schema.Optional("distance", schema.Number()),
	)

	parcelShopsResponseContract = schema.Object(
		schema.Required("parcelShops", schema.Array(parcelShopContract)),
	)
)
