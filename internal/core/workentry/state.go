package workentry

// transitions は操作ごとの遷移表です。approved からの遷移は定義しません。
var transitions = map[Action]map[ReviewStatus]ReviewStatus{
	ActionEdit: {
		ReviewStatusPendingReview: ReviewStatusPendingReview,
		ReviewStatusNeedsChanges:  ReviewStatusNeedsChanges,
	},
	ActionResubmit: {
		ReviewStatusNeedsChanges: ReviewStatusPendingReview,
	},
	ActionApprove: {
		ReviewStatusPendingReview: ReviewStatusApproved,
	},
	ActionRequestChanges: {
		ReviewStatusPendingReview: ReviewStatusNeedsChanges,
	},
}

// nextStatus は現在のステータスに操作を適用した後のステータスを返します。
func nextStatus(id string, from ReviewStatus, action Action) (ReviewStatus, error) {
	if to, ok := transitions[action][from]; ok {
		return to, nil
	}
	return "", &TransitionError{ID: id, From: from, Action: action}
}
