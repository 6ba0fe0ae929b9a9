package honda

import (
	"encoding/json"
	"fmt"
)

// auraContext is the context blob the mygarage site sends with every
// action, the server rejects requests without it.
const auraContext = `{"mode":"PROD","fwuid":"eE5UbjZPdVlRT3M0d0xtOXc5MzVOQWg5TGxiTHU3MEQ5RnBMM0VzVXc1cmcxMi42MjkxNDU2LjE2Nzc3MjE2","app":"siteforce:communityApp","loaded":{"APPLICATION@markup://siteforce:communityApp":"1301_LBgf00TjwltnPu835uHgpg"},"dn":[],"globals":{},"uad":true}`

const auraDescriptor = "aura://ApexActionController/ACTION$execute"

// action identifies one apex controller method exposed by a community page.
type action struct {
	r          int
	id         int
	page       string
	controller string
	method     string
}

var (
	actionProduct = action{
		r: 8, id: 99,
		page:       "find-honda",
		controller: "OwnGarage",
		method:     "getProductByVIN",
	}
	actionSpecifications = action{
		r: 16, id: 130,
		page:       "specifications",
		controller: "OwnSpecifications",
		method:     "getAutoSpecificationsByModelId",
	}
	actionManuals = action{
		r: 1, id: 87,
		page:       "owners-manuals",
		controller: "OwnManualsApi",
		method:     "getManualByVINAuto",
	}
)

type auraParams struct {
	Namespace      string `json:"namespace"`
	Classname      string `json:"classname"`
	Method         string `json:"method"`
	Params         any    `json:"params"`
	Cacheable      bool   `json:"cacheable"`
	IsContinuation bool   `json:"isContinuation"`
}

type auraAction struct {
	Id                string     `json:"id"`
	Descriptor        string     `json:"(descriptor)"`
	CallingDescriptor string     `json:"callingDescriptor"`
	Params            auraParams `json:"params"`
}

type auraMessage struct {
	Actions []auraAction `json:"actions"`
}

type productParams struct {
	DivisionId   string `json:"divisionId"`
	Vin          string `json:"vin"`
	DivisionName string `json:"divisionName"`
}

type specificationsParams struct {
	ModelId    string `json:"modelId"`
	DivisionId string `json:"divisionId"`
}

type manualsParams struct {
	ProductIdentifier string `json:"productIdentifier"`
	DivisionId        string `json:"divisionId"`
	Division          string `json:"division"`
}

func (a action) path() string {
	return fmt.Sprintf("/s/sfsites/aura?r=%d&aura.ApexAction.execute=1", a.r)
}

// form builds the url-encoded body of an aura action call.
func (a action) form(params any) (map[string]string, error) {
	message, err := json.Marshal(auraMessage{
		Actions: []auraAction{{
			Id:                fmt.Sprintf("%d;a", a.id),
			Descriptor:        auraDescriptor,
			CallingDescriptor: "UNKNOWN",
			Params: auraParams{
				Classname: a.controller + "Controller",
				Method:    a.method,
				Params:    params,
			},
		}},
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"message":      string(message),
		"aura.context": auraContext,
		"aura.pageURI": "/s/" + a.page,
		"aura.token":   "null",
	}, nil
}
