package dto

type LogListRequest struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Module string `query:"module"`
	RunId  string `query:"run_id" validate:"omitempty,uuid"`
	Limit  int    `query:"limit" validate:"gte=0,lte=500"`
	Offset int    `query:"offset" validate:"gte=0"`
}
