package verification

type VerifyRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
	Reason   string `json:"reason" binding:"max=500"`
}

type PendingQuery struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}
