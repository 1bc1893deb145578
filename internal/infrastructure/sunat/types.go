package sunat

import "encoding/xml"

// Constantes del WS de SUNAT (billService).
const (
	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	wsseNS         = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	serviceNS      = "http://service.sunat.gob.pe"
	soapActionSend = "urn:sendBill"
)

// ── Envelope de petición ──────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName   xml.Name    `xml:"soapenv:Envelope"`
	XmlnsSoap string      `xml:"xmlns:soapenv,attr"`
	XmlnsSer  string      `xml:"xmlns:ser,attr"`
	XmlnsWsse string      `xml:"xmlns:wsse,attr"`
	Header    soapHeader  `xml:"soapenv:Header"`
	Body      soapReqBody `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	Token wsseUsernameToken `xml:"wsse:UsernameToken"`
}

type wsseUsernameToken struct {
	Username string `xml:"wsse:Username"`
	Password string `xml:"wsse:Password"`
}

type soapReqBody struct {
	SendBill *sendBillBody `xml:"ser:sendBill,omitempty"`
}

type sendBillBody struct {
	FileName    string `xml:"fileName"`
	ContentFile string `xml:"contentFile"`
}

// ── Envelope de respuesta ─────────────────────────────────────────────────────

type soapResponseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    soapRespBody `xml:"Body"`
}

type soapRespBody struct {
	SendBillResponse *sendBillResponse `xml:"sendBillResponse"`
	Fault            *soapFault        `xml:"Fault"`
}

type sendBillResponse struct {
	// applicationResponse es el ZIP del CDR codificado en base64.
	ApplicationResponse string `xml:"applicationResponse"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}
