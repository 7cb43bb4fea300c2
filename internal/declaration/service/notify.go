package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"etatcivil/internal/declaration/models"
	notificationmodels "etatcivil/internal/notification/models"
	id "etatcivil/pkg/domain"
)

// dispatch is one notification target: an agent audience or a single user.
type dispatch struct {
	role  id.Role
	orgID uuid.UUID
	user  *id.UserID
	msg   notificationmodels.Message
}

func (s *Service) notifyAfterCreate(ctx context.Context, d *models.Declaration) {
	child := childName(d)
	s.deliver(ctx, d,
		dispatch{role: id.RoleMairie, orgID: uuid.UUID(d.OfficeID), msg: message(d, notificationmodels.TypeDeclarationSubmitted,
			"Nouvelle déclaration de naissance",
			fmt.Sprintf("Une déclaration de naissance pour %s attend votre examen.", child))},
		dispatch{user: &d.OwnerID, msg: message(d, notificationmodels.TypeDeclarationSubmitted,
			"Déclaration transmise à la mairie",
			fmt.Sprintf("Votre déclaration pour %s a bien été reçue par la mairie.", child))},
	)
}

// notifyAfterTransition notifies the next responsible audience, then the parent.
func (s *Service) notifyAfterTransition(ctx context.Context, action models.Action, d *models.Declaration, reason string) {
	child := childName(d)
	parent := func(typ notificationmodels.Type, title, body string) dispatch {
		return dispatch{user: &d.OwnerID, msg: message(d, typ, title, body)}
	}
	mairie := func(typ notificationmodels.Type, title, body string) dispatch {
		return dispatch{role: id.RoleMairie, orgID: uuid.UUID(d.OfficeID), msg: message(d, typ, title, body)}
	}

	switch action {
	case models.ActionSendToHospital:
		var hospitalOrg uuid.UUID
		if d.AssignedHospitalID != nil {
			hospitalOrg = uuid.UUID(*d.AssignedHospitalID)
		}
		s.deliver(ctx, d,
			dispatch{role: id.RoleHospital, orgID: hospitalOrg, msg: message(d, notificationmodels.TypeDeclarationToHospital,
				"Certificat d'accouchement à vérifier",
				fmt.Sprintf("La mairie demande la vérification du certificat d'accouchement de %s.", child))},
			parent(notificationmodels.TypeDeclarationToHospital,
				"Vérification en cours",
				fmt.Sprintf("Le certificat d'accouchement de %s a été transmis à l'hôpital pour vérification.", child)),
		)
	case models.ActionReject:
		s.deliver(ctx, d, parent(notificationmodels.TypeDeclarationRejected,
			"Déclaration rejetée",
			fmt.Sprintf("Votre déclaration pour %s a été rejetée. Motif : %s", child, reason)))
	case models.ActionValidateCertificate:
		s.deliver(ctx, d,
			mairie(notificationmodels.TypeCertificateVerified,
				"Certificat d'accouchement vérifié",
				fmt.Sprintf("L'hôpital a confirmé le certificat d'accouchement de %s.", child)),
			parent(notificationmodels.TypeCertificateVerified,
				"Certificat d'accouchement vérifié",
				fmt.Sprintf("L'hôpital a confirmé le certificat d'accouchement de %s.", child)),
		)
	case models.ActionRejectCertificate:
		s.deliver(ctx, d,
			mairie(notificationmodels.TypeCertificateRejected,
				"Certificat d'accouchement rejeté",
				fmt.Sprintf("L'hôpital a rejeté le certificat d'accouchement de %s. Motif : %s", child, reason)),
			parent(notificationmodels.TypeCertificateRejected,
				"Certificat d'accouchement rejeté",
				fmt.Sprintf("L'hôpital n'a pas pu confirmer le certificat d'accouchement de %s. Motif : %s", child, reason)),
		)
	case models.ActionValidate:
		s.deliver(ctx, d, parent(notificationmodels.TypeDeclarationValidated,
			"Déclaration validée",
			fmt.Sprintf("La déclaration de naissance de %s a été validée par la mairie.", child)))
	case models.ActionArchive:
		s.deliver(ctx, d, parent(notificationmodels.TypeDeclarationArchived,
			"Acte de naissance disponible",
			fmt.Sprintf("L'acte de naissance de %s est prêt à être téléchargé.", child)))
	}
}

// deliver sends in order. The notifier logs and counts failures itself.
func (s *Service) deliver(ctx context.Context, d *models.Declaration, targets ...dispatch) {
	for _, t := range targets {
		if t.user != nil {
			s.notifier.NotifyUser(ctx, *t.user, t.msg)
			continue
		}
		report := s.notifier.NotifyAudience(ctx, t.role, t.orgID, t.msg)
		s.logger.DebugContext(ctx, "declaration audience notified",
			"declaration_id", d.ID.String(),
			"role", t.role,
			"tier", report.Tier,
			"delivered", report.Delivered,
			"failed", len(report.Failures),
		)
	}
}

func message(d *models.Declaration, typ notificationmodels.Type, title, body string) notificationmodels.Message {
	declarationID := d.ID
	return notificationmodels.Message{Type: typ, Title: title, Body: body, DeclarationID: &declarationID}
}

func childName(d *models.Declaration) string {
	return d.Child.FirstName + " " + d.Child.LastName
}
