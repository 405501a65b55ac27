package services

import "github.com/magabrotheeeer/audit-coordinator/internal/models"

// Visible скрывает поля заявки, которые роль не должна видеть:
// студенту не показываются коды администраторов, фирме — вознаграждение
// администратора до одобрения.
func Visible(role models.Role, form models.Form) models.Form {
	form = form.Clone()
	return models.SwitchRole(role,
		func() models.Form {
			if !form.IsApproved {
				form.AdminFees = nil
			}
			return form
		},
		func() models.Form {
			form.AdminCodes = nil
			return form
		},
		func() models.Form { return form },
	)
}

func visibleAll(role models.Role, forms []models.Form) []models.Form {
	out := make([]models.Form, len(forms))
	for i, f := range forms {
		out[i] = Visible(role, f)
	}
	return out
}
