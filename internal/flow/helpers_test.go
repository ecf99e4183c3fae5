package flow

import (
	"github.com/ashureev/influencer-desk/internal/domain"
	"github.com/ashureev/influencer-desk/internal/slots"
)

func criteriaOf(s *domain.Session) domain.CriteriaSet {
	return slots.CriteriaFromFields(s.Fields())
}
