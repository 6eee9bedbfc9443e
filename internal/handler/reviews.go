package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/permission"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

func ListReviews(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, permission.Reviews, permission.List); err != nil {
			writeError(w, r, err)
			return
		}
		titleID, err := pathID(r, "title_id", "title")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := st.TitleExists(r.Context(), titleID); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := listParams(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		page, err := st.ListReviews(r.Context(), titleID, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, http.StatusOK, mapPage(page, model.NewReviewResponse))
	}
}

// CreateReview adds the caller's review. A second review of the same title
// by the same author is rejected with DUPLICATE_REVIEW.
func CreateReview(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := authorize(r, permission.Reviews, permission.Create)
		if err != nil {
			writeError(w, r, err)
			return
		}
		titleID, err := pathID(r, "title_id", "title")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := st.TitleExists(r.Context(), titleID); err != nil {
			writeError(w, r, err)
			return
		}

		var in model.ReviewInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.Review(r.Context(), titleID, actor.ID, in, true); err != nil {
			writeError(w, r, err)
			return
		}

		review := model.Review{TitleID: titleID, AuthorID: actor.ID}
		in.Apply(&review)
		created, err := st.CreateReview(r.Context(), &review)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpLog(r).WithFields(logrus.Fields{"title_id": titleID, "review_id": created.ID}).Info("review created")
		respond(w, http.StatusCreated, model.NewReviewResponse(created))
	}
}

func ReviewItem(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := itemAction(r.Method)
		actor, err := authorize(r, permission.Reviews, action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		review, err := loadReview(r, st)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := authorizeObject(actor, permission.Reviews, action, review.AuthorID); err != nil {
			writeError(w, r, err)
			return
		}

		switch action {
		case permission.Retrieve:
			respond(w, http.StatusOK, model.NewReviewResponse(review))
		case permission.Destroy:
			if err := st.DeleteReview(r.Context(), review.ID); err != nil {
				writeError(w, r, err)
				return
			}
			httpLog(r).WithField("review_id", review.ID).Info("review deleted")
			w.WriteHeader(http.StatusNoContent)
		default:
			var in model.ReviewInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			if action == permission.Update {
				if err := requireFields(map[string]bool{"text": in.Text != nil, "score": in.Score != nil}); err != nil {
					writeError(w, r, err)
					return
				}
			}
			if err := v.Review(r.Context(), review.TitleID, review.AuthorID, in, false); err != nil {
				writeError(w, r, err)
				return
			}
			in.Apply(review)
			updated, err := st.UpdateReview(r.Context(), review)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respond(w, http.StatusOK, model.NewReviewResponse(updated))
		}
	}
}

// loadReview resolves title_id/review_id, requiring the review to belong to
// the title.
func loadReview(r *http.Request, st *store.Store) (*model.Review, error) {
	titleID, err := pathID(r, "title_id", "title")
	if err != nil {
		return nil, err
	}
	reviewID, err := pathID(r, "review_id", "review")
	if err != nil {
		return nil, err
	}
	if err := st.TitleExists(r.Context(), titleID); err != nil {
		return nil, err
	}
	return st.GetReview(r.Context(), titleID, reviewID)
}

func ListComments(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, permission.Comments, permission.List); err != nil {
			writeError(w, r, err)
			return
		}
		review, err := loadReview(r, st)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, err := listParams(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		page, err := st.ListComments(r.Context(), review.ID, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, http.StatusOK, mapPage(page, model.NewCommentResponse))
	}
}

func CreateComment(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := authorize(r, permission.Comments, permission.Create)
		if err != nil {
			writeError(w, r, err)
			return
		}
		review, err := loadReview(r, st)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var in model.CommentInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.Comment(in, true); err != nil {
			writeError(w, r, err)
			return
		}

		created, err := st.CreateComment(r.Context(), &model.Comment{
			ReviewID: review.ID,
			AuthorID: actor.ID,
			Text:     *in.Text,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, http.StatusCreated, model.NewCommentResponse(created))
	}
}

func CommentItem(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := itemAction(r.Method)
		actor, err := authorize(r, permission.Comments, action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		review, err := loadReview(r, st)
		if err != nil {
			writeError(w, r, err)
			return
		}
		commentID, err := pathID(r, "comment_id", "comment")
		if err != nil {
			writeError(w, r, err)
			return
		}
		comment, err := st.GetComment(r.Context(), review.ID, commentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := authorizeObject(actor, permission.Comments, action, comment.AuthorID); err != nil {
			writeError(w, r, err)
			return
		}

		switch action {
		case permission.Retrieve:
			respond(w, http.StatusOK, model.NewCommentResponse(comment))
		case permission.Destroy:
			if err := st.DeleteComment(r.Context(), comment.ID); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			var in model.CommentInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			if err := v.Comment(in, action == permission.Update); err != nil {
				writeError(w, r, err)
				return
			}
			if in.Text != nil {
				comment.Text = *in.Text
			}
			updated, err := st.UpdateComment(r.Context(), comment)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respond(w, http.StatusOK, model.NewCommentResponse(updated))
		}
	}
}
