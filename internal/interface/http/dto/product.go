package dto

// TentQuotaQuery binds the tent quota status query. TeamsInCart lets the
// cart page include team registrations that are not paid yet.
type TentQuotaQuery struct {
	EventYearID uint `form:"event_year_id" binding:"required"`
	TeamsInCart int  `form:"teams_in_cart" binding:"min=0"`
}
