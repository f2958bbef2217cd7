package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Advise renders advice for the profile and answers the attached question, if
// any. It never touches a session transcript.
func (s *Service) Advise(ctx context.Context, profile Profile) (Advice, error) {
	profile.Question = strings.TrimSpace(profile.Question)

	if err := s.validateProfile(profile); err != nil {
		return Advice{}, err
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "At age %d, maintaining a healthy weight of %dkg is crucial.", profile.Age, profile.Weight)
	if !profile.Exercise {
		builder.WriteString(" Regular prenatal exercises can help with delivery and reduce stress.")
	}
	if !profile.Diet {
		builder.WriteString(" Consider a balanced diet rich in folic acid, iron, and calcium.")
	}

	advice := Advice{Text: builder.String()}

	if profile.Question != "" {
		result := s.completer.Complete(ctx, nil, profile.Question)
		if !result.OK() {
			slog.Warn("Advice question failed", "error", result.Err)
		}

		advice.Question = profile.Question
		advice.Answer = result.Display()
	}

	return advice, nil
}
