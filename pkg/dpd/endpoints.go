package dpd

import "time"

// Environment selects the DPD installation to talk to.
type Environment string

const (
	Production Environment = "production"
	Demo       Environment = "demo"
)

// ServiceKind identifies one DPD service endpoint.
type ServiceKind string

const (
	// ObjServices is the object-style SOAP API used by all package procedures.
	ObjServices ServiceKind = "objServices"
	// XMLServices is the XML-payload SOAP API.
	XMLServices ServiceKind = "xmlServices"
	// PUDO is the REST ParcelShop API.
	PUDO ServiceKind = "pudo"
)

// IsSOAP reports whether the service is reached through a WSDL.
func (k ServiceKind) IsSOAP() bool {
	return k == ObjServices || k == XMLServices
}

var endpoints = map[Environment]map[ServiceKind]string{
	Production: {
		ObjServices: "https://dpdservices.dpd.com.pl/DPDPackageObjServicesService/DPDPackageObjServices?WSDL",
		XMLServices: "https://dpdservices.dpd.com.pl/DPDPackageXmlServicesService/DPDPackageXmlServices?WSDL",
		PUDO:        "https://mypudo.dpd.com.pl/api/v2",
	},
	Demo: {
		ObjServices: "https://dpdservicesdemo.dpd.com.pl/DPDPackageObjServicesService/DPDPackageObjServices?WSDL",
		XMLServices: "https://dpdservicesdemo.dpd.com.pl/DPDPackageXmlServicesService/DPDPackageXmlServices?WSDL",
		PUDO:        "https://mypudo-demo.dpd.com.pl/api/v2",
	},
}

// ResolveEndpoint returns the URL of a service in an environment.
func ResolveEndpoint(env Environment, kind ServiceKind) (string, error) {
	byKind, ok := endpoints[env]
	if !ok {
		return "", NewConfigurationError("unknown environment %q", env)
	}
	url, ok := byKind[kind]
	if !ok {
		return "", NewConfigurationError("unknown service %q in environment %q", kind, env)
	}
	return url, nil
}

// TrackingURL returns the public tracking page for a waybill.
func TrackingURL(waybill string) string {
	return "https://tracktrace.dpd.com.pl/findPackage?q=" + waybill
}

// Configuration bounds and defaults.
const (
	MinTimeout        = time.Second
	MaxTimeout        = 60 * time.Second
	DefaultTimeout    = 30 * time.Second
	MaxRetriesLimit   = 5
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Credentials authenticate every call. They are copied into each payload.
type Credentials struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	MasterFID string `json:"masterFid"`
}

// AuthData returns the authDataV1 argument tree.
func (c Credentials) AuthData() map[string]any {
	return map[string]any{
		"login":     c.Login,
		"password":  c.Password,
		"masterFid": c.MasterFID,
	}
}
