package service

import "github.com/tournevent/dpd/pkg/dpd/schema"

// Reencode decodes raw into the response record of p and encodes the
// record back against the response contract.
func Reencode(p Procedure, raw any) (any, error) {
	rec, err := p.decode(p.Response, raw)
	if err != nil {
		return nil, err
	}
	return schema.Encode(p.Response, rec)
}
