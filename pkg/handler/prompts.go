package handler

// mealEvaluationPrompt accompanies every meal photo. The model must estimate
// macronutrients and answer in this fixed coaching format.
const mealEvaluationPrompt = `この画像に写る食品を認識して栄養成分を推定したうえで、以下のフォーマットに沿って評価・指導を行ってください。食事指導フォーマット  
■ 栄養素
 ・P (タンパク質) : [00]g [ ○ / △ / × ]
 ・F(脂質) : [00]g [ ○ / △ / × ]
 ・C (炭水化物) : [00]g [ ○ / △ / × ]
 ・推定 : [000] kcal

■ 総合評価
 [例：脂質が完全にオーバーです / タンパク質が全く足りていません]

■ 次回の指示
 [例：油を使わない「蒸し」か「茹で」のメインを選んでください]

■ 理由
 [例：今の食事で摂りすぎた脂質を、1日の中で薄めてリセットするためです]`
