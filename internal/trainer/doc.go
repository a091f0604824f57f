// Package trainer はトレーナー申請の提出と審査のワークフローを提供する。
//
// 会員はトレーナー申請を提出でき、管理者が承認・却下を行う。承認時は
// 申請者のロールをTRAINERに昇格させ、審査結果はリアルタイム通知と
// メールで申請者に伝えられる。
package trainer
